package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTags()
	c.normalizeTools()
	if err := c.normalizeTraining(); err != nil {
		return err
	}
	c.normalizeEvaluation()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DICOMRoot, err = expandPath(strings.TrimSpace(c.Paths.DICOMRoot)); err != nil {
		return fmt.Errorf("paths.dicom_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CohortFile, err = expandPath(strings.TrimSpace(c.Paths.CohortFile)); err != nil {
		return fmt.Errorf("paths.cohort_file: %w", err)
	}
	return nil
}

// Tags are matched verbatim against paths, so only surrounding whitespace is
// removed; empty values fall back to the defaults.
func (c *Config) normalizeTags() {
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Tags.Source, defaultSourceTag)
	fill(&c.Tags.NIfTI, defaultNIfTITag)
	fill(&c.Tags.Brain, defaultBrainTag)
	fill(&c.Tags.BrainMarker, defaultBrainMarker)
	fill(&c.Tags.AxesCorrected, defaultAxesCorrectedTag)
	fill(&c.Tags.PNG, defaultPNGTag)
	fill(&c.Tags.BrainSuffix, defaultBrainSuffix)
	fill(&c.Tags.VolumeSuffix, defaultVolumeSuffix)
}

func (c *Config) normalizeTools() {
	c.Tools.Converter = strings.TrimSpace(c.Tools.Converter)
	if c.Tools.Converter == "" {
		c.Tools.Converter = defaultConverter
	}
	c.Tools.ConverterPattern = strings.TrimSpace(c.Tools.ConverterPattern)
	if c.Tools.ConverterPattern == "" {
		c.Tools.ConverterPattern = defaultConverterPattern
	}
	c.Tools.Bet = strings.TrimSpace(c.Tools.Bet)
	if c.Tools.Bet == "" {
		c.Tools.Bet = defaultBet
	}
	c.Tools.FSLDir = strings.TrimSpace(c.Tools.FSLDir)
	if c.Tools.FSLDir == "" {
		c.Tools.FSLDir = defaultFSLDir
	}
	c.Tools.FSLOutputType = strings.ToUpper(strings.TrimSpace(c.Tools.FSLOutputType))
	if c.Tools.FSLOutputType == "" {
		c.Tools.FSLOutputType = defaultFSLOutputType
	}
	c.Tools.Med2Image = strings.TrimSpace(c.Tools.Med2Image)
	if c.Tools.Med2Image == "" {
		c.Tools.Med2Image = defaultMed2Image
	}
	c.Tools.Modality = strings.TrimSpace(c.Tools.Modality)
	if c.Tools.Modality == "" {
		c.Tools.Modality = defaultModality
	}
}

func (c *Config) normalizeTraining() error {
	command := make([]string, 0, len(c.Training.Command))
	for _, part := range c.Training.Command {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Training.Command = command
	var err error
	if c.Training.DataPath, err = expandPath(strings.TrimSpace(c.Training.DataPath)); err != nil {
		return fmt.Errorf("training.data_path: %w", err)
	}
	if c.Training.OutputPath, err = expandPath(strings.TrimSpace(c.Training.OutputPath)); err != nil {
		return fmt.Errorf("training.output_path: %w", err)
	}
	c.Training.DataFilename = strings.TrimSpace(c.Training.DataFilename)
	c.Training.InferenceFilename = strings.TrimSpace(c.Training.InferenceFilename)
	return nil
}

func (c *Config) normalizeEvaluation() {
	c.Evaluation.OutputDir = strings.TrimSpace(c.Evaluation.OutputDir)
	if c.Evaluation.OutputDir == "" {
		c.Evaluation.OutputDir = defaultEvaluationDir
	}
	if len(c.Evaluation.Slices) == 0 {
		c.Evaluation.Slices = append([]int(nil), defaultEvaluationSlices...)
	}
	if c.Evaluation.Smooth == 0 {
		c.Evaluation.Smooth = defaultDiceSmooth
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
