package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTags(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateEvaluation(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DICOMRoot) == "" {
		return errors.New("paths.dicom_root must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateTags() error {
	if !strings.Contains(c.Paths.DICOMRoot, c.Tags.Source) {
		return fmt.Errorf("paths.dicom_root %q must contain tags.source %q", c.Paths.DICOMRoot, c.Tags.Source)
	}
	seen := map[string]string{}
	for name, value := range map[string]string{
		"tags.source":         c.Tags.Source,
		"tags.nifti":          c.Tags.NIfTI,
		"tags.brain":          c.Tags.Brain,
		"tags.axes_corrected": c.Tags.AxesCorrected,
		"tags.png":            c.Tags.PNG,
	} {
		if other, ok := seen[value]; ok {
			return fmt.Errorf("%s and %s must differ (both %q)", name, other, value)
		}
		seen[value] = name
	}
	if !strings.Contains(c.Tags.Brain, c.Tags.BrainMarker) {
		return fmt.Errorf("tags.brain %q must contain tags.brain_marker %q", c.Tags.Brain, c.Tags.BrainMarker)
	}
	if !strings.Contains(c.Tags.AxesCorrected, c.Tags.BrainMarker) {
		return fmt.Errorf("tags.axes_corrected %q must contain tags.brain_marker %q", c.Tags.AxesCorrected, c.Tags.BrainMarker)
	}
	if !strings.HasPrefix(c.Tags.VolumeSuffix, ".") {
		return fmt.Errorf("tags.volume_suffix %q must start with a dot", c.Tags.VolumeSuffix)
	}
	return nil
}

func (c *Config) validateTools() error {
	switch c.Tools.FSLOutputType {
	case "NIFTI_GZ", "NIFTI", "NIFTI_PAIR", "NIFTI_PAIR_GZ":
	default:
		return fmt.Errorf("tools.fsl_output_type: unsupported value %q", c.Tools.FSLOutputType)
	}
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateTraining() error {
	if c.Training.BatchSize <= 0 {
		return errors.New("training.batch_size must be positive")
	}
	if c.Training.Epochs <= 0 {
		return errors.New("training.epochs must be positive")
	}
	if c.Training.CropDim == 0 || c.Training.CropDim < -1 {
		return errors.New("training.crop_dim must be positive or -1")
	}
	if c.Training.IntraOpThreads <= 0 || c.Training.InterOpThreads <= 0 {
		return errors.New("training.intraop_threads and training.interop_threads must be positive")
	}
	return nil
}

func (c *Config) validateEvaluation() error {
	if c.Evaluation.CropDim == 0 || c.Evaluation.CropDim < -1 {
		return errors.New("evaluation.crop_dim must be positive or -1")
	}
	if c.Evaluation.Smooth < 0 {
		return errors.New("evaluation.smooth must not be negative")
	}
	for _, idx := range c.Evaluation.Slices {
		if idx < 0 {
			return fmt.Errorf("evaluation.slices: negative index %d", idx)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
