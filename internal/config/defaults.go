package config

const (
	defaultDICOMRoot         = "~/data/TCGA-GBM"
	defaultWorkDir           = "~/.local/share/brainprep"
	defaultLogDir            = "~/.local/share/brainprep/logs"
	defaultSourceTag         = "TCGA-GBM"
	defaultNIfTITag          = "TCGA-GBM[nii]"
	defaultBrainTag          = "TCGA-GBM[brain]"
	defaultBrainMarker       = "brain"
	defaultAxesCorrectedTag  = "brain_axes-corrected"
	defaultPNGTag            = "axes-corrected_PNG"
	defaultBrainSuffix       = "_brain"
	defaultVolumeSuffix      = ".nii.gz"
	defaultConverter         = "dcm2niix"
	defaultConverterPattern  = "%p_%s"
	defaultBet               = "/usr/local/fsl/bin/bet"
	defaultFSLDir            = "/usr/local/fsl"
	defaultFSLOutputType     = "NIFTI_GZ"
	defaultMed2Image         = "med2image"
	defaultModality          = "T1"
	defaultDataPath          = "~/data/decathlon/144x144"
	defaultDataFilename      = "Task01_BrainTumour.h5"
	defaultOutputPath        = "~/output"
	defaultInferenceFilename = "unet_model_for_decathlon.hdf5"
	defaultBatchSize         = 128
	defaultEpochs            = 30
	defaultCropDim           = 128
	defaultIntraOpThreads    = 4
	defaultInterOpThreads    = 2
	defaultSeed              = 816
	defaultEvaluationDir     = "inference_examples"
	defaultDiceSmooth        = 0.01
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// defaultEvaluationSlices are the sample indices rendered when none are requested.
var defaultEvaluationSlices = []int{50, 61, 102, 210, 371, 400, 1093, 2222, 3540, 4485, 5566, 5675, 6433}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DICOMRoot: defaultDICOMRoot,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Tags: Tags{
			Source:        defaultSourceTag,
			NIfTI:         defaultNIfTITag,
			Brain:         defaultBrainTag,
			BrainMarker:   defaultBrainMarker,
			AxesCorrected: defaultAxesCorrectedTag,
			PNG:           defaultPNGTag,
			BrainSuffix:   defaultBrainSuffix,
			VolumeSuffix:  defaultVolumeSuffix,
		},
		Tools: Tools{
			Converter:        defaultConverter,
			ConverterPattern: defaultConverterPattern,
			Bet:              defaultBet,
			FSLDir:           defaultFSLDir,
			FSLOutputType:    defaultFSLOutputType,
			Med2Image:        defaultMed2Image,
			Modality:         defaultModality,
		},
		Training: Training{
			Command:           []string{"python", "train.py"},
			DataPath:          defaultDataPath,
			DataFilename:      defaultDataFilename,
			OutputPath:        defaultOutputPath,
			InferenceFilename: defaultInferenceFilename,
			BatchSize:         defaultBatchSize,
			Epochs:            defaultEpochs,
			CropDim:           defaultCropDim,
			IntraOpThreads:    defaultIntraOpThreads,
			InterOpThreads:    defaultInterOpThreads,
			Seed:              defaultSeed,
		},
		Evaluation: Evaluation{
			OutputDir: defaultEvaluationDir,
			CropDim:   defaultCropDim,
			Slices:    append([]int(nil), defaultEvaluationSlices...),
			Smooth:    defaultDiceSmooth,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
