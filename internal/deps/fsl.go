package deps

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveBet returns the bet binary the skull-strip stage should execute.
//
// A bare command name prefers the copy inside fslDir/bin, matching how an
// FSL installation is normally laid out, and falls back to PATH lookup.
// Paths are returned unchanged.
func ResolveBet(command, fslDir string) string {
	command = strings.TrimSpace(command)
	if command == "" || strings.ContainsRune(command, filepath.Separator) {
		return command
	}
	if strings.TrimSpace(fslDir) == "" {
		return command
	}
	candidate := filepath.Join(fslDir, "bin", command)
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return command
}

// CheckBet reports bet availability using the same resolution as the
// skull-strip stage.
func CheckBet(command, fslDir string) Status {
	status := Check(Requirement{
		Name:        "FSL bet",
		Command:     ResolveBet(command, fslDir),
		Description: "Required for skull stripping",
	})
	if !status.Available && strings.TrimSpace(fslDir) != "" {
		if _, err := os.Stat(fslDir); err != nil {
			status.Detail += "; fsl_dir " + fslDir + " is missing"
		}
	}
	return status
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
