// Package training launches the external U-Net trainer with an immutable,
// validated configuration.
package training

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"brainprep/internal/config"
)

// Options is the mutable input to NewConfig.
type Options struct {
	Command           []string
	DataPath          string
	DataFilename      string
	OutputPath        string
	InferenceFilename string
	BatchSize         int
	Epochs            int
	CropDim           int
	IntraOpThreads    int
	InterOpThreads    int
	UsePartialConv    bool
	ChannelsFirst     bool
	Seed              int
}

// OptionsFromConfig seeds Options from the [training] section.
func OptionsFromConfig(t config.Training) Options {
	return Options{
		Command:           append([]string(nil), t.Command...),
		DataPath:          t.DataPath,
		DataFilename:      t.DataFilename,
		OutputPath:        t.OutputPath,
		InferenceFilename: t.InferenceFilename,
		BatchSize:         t.BatchSize,
		Epochs:            t.Epochs,
		CropDim:           t.CropDim,
		IntraOpThreads:    t.IntraOpThreads,
		InterOpThreads:    t.InterOpThreads,
		UsePartialConv:    t.UsePartialConv,
		ChannelsFirst:     t.ChannelsFirst,
		Seed:              t.Seed,
	}
}

// Config is a validated trainer configuration. It cannot be modified after
// NewConfig returns.
type Config struct {
	command           []string
	dataPath          string
	dataFilename      string
	outputPath        string
	inferenceFilename string
	batchSize         int
	epochs            int
	cropDim           int
	intraOpThreads    int
	interOpThreads    int
	usePartialConv    bool
	channelsFirst     bool
	seed              int
}

// NewConfig validates opts and returns an immutable Config.
func NewConfig(opts Options) (*Config, error) {
	var problems []string
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		problems = append(problems, "command must not be empty")
	}
	for name, value := range map[string]string{
		"data_path":          opts.DataPath,
		"data_filename":      opts.DataFilename,
		"output_path":        opts.OutputPath,
		"inference_filename": opts.InferenceFilename,
	} {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" must be set")
		}
	}
	for name, value := range map[string]int{
		"batch_size":      opts.BatchSize,
		"epochs":          opts.Epochs,
		"intraop_threads": opts.IntraOpThreads,
		"interop_threads": opts.InterOpThreads,
	} {
		if value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive (got %d)", name, value))
		}
	}
	if opts.CropDim != -1 && opts.CropDim <= 0 {
		problems = append(problems, fmt.Sprintf("crop_dim must be positive or -1 (got %d)", opts.CropDim))
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, errors.New("invalid training config: " + strings.Join(problems, "; "))
	}

	return &Config{
		command:           append([]string(nil), opts.Command...),
		dataPath:          filepath.Clean(opts.DataPath),
		dataFilename:      opts.DataFilename,
		outputPath:        filepath.Clean(opts.OutputPath),
		inferenceFilename: opts.InferenceFilename,
		batchSize:         opts.BatchSize,
		epochs:            opts.Epochs,
		cropDim:           opts.CropDim,
		intraOpThreads:    opts.IntraOpThreads,
		interOpThreads:    opts.InterOpThreads,
		usePartialConv:    opts.UsePartialConv,
		channelsFirst:     opts.ChannelsFirst,
		seed:              opts.Seed,
	}, nil
}

// Command returns a copy of the trainer command.
func (c *Config) Command() []string { return append([]string(nil), c.command...) }

func (c *Config) DataPath() string { return c.dataPath }
func (c *Config) DataFilename() string { return c.dataFilename }
func (c *Config) OutputPath() string { return c.outputPath }
func (c *Config) InferenceFilename() string { return c.inferenceFilename }
func (c *Config) BatchSize() int { return c.batchSize }
func (c *Config) Epochs() int { return c.epochs }
func (c *Config) CropDim() int { return c.cropDim }
func (c *Config) IntraOpThreads() int { return c.intraOpThreads }
func (c *Config) InterOpThreads() int { return c.interOpThreads }
func (c *Config) UsePartialConv() bool { return c.usePartialConv }
func (c *Config) ChannelsFirst() bool { return c.channelsFirst }
func (c *Config) Seed() int { return c.seed }

// DataFile is the full path of the training data file.
func (c *Config) DataFile() string {
	return filepath.Join(c.dataPath, c.dataFilename)
}

// ModelFile is where the trainer saves the inference model.
func (c *Config) ModelFile() string {
	return filepath.Join(c.outputPath, c.inferenceFilename)
}

// Args returns the trainer flags.
func (c *Config) Args() []string {
	args := []string{
		"--data_path", c.dataPath,
		"--data_filename", c.dataFilename,
		"--output_path", c.outputPath,
		"--inference_filename", c.inferenceFilename,
		"--bz", strconv.Itoa(c.batchSize),
		"--epochs", strconv.Itoa(c.epochs),
		"--crop_dim", strconv.Itoa(c.cropDim),
		"--num_threads", strconv.Itoa(c.intraOpThreads),
		"--num_inter_threads", strconv.Itoa(c.interOpThreads),
		"--seed", strconv.Itoa(c.seed),
	}
	if c.usePartialConv {
		args = append(args, "--use_pconv")
	}
	if c.channelsFirst {
		args = append(args, "--channels_first")
	}
	return args
}

// Environment returns the threading variables passed to the trainer process.
func (c *Config) Environment() []string {
	return []string{
		"OMP_NUM_THREADS=" + strconv.Itoa(c.intraOpThreads),
		"KMP_BLOCKTIME=1",
		"KMP_AFFINITY=granularity=thread,compact,1,0",
		"TF_CPP_MIN_LOG_LEVEL=2",
	}
}
