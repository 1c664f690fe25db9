package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultEnvironmentVariables are the variables UnexpandEnvironmentStrings looks for.
var DefaultEnvironmentVariables = []string{
	"ALLUSERSPROFILE",
	"APPDATA",
	"CommonProgramFiles",
	"CommonProgramFiles(x86)",
	"HOME",
	"HOMEDRIVE",
	"LOCALAPPDATA",
	"OneDrive",
	"ProgramData",
	"ProgramFiles",
	"ProgramFiles(x86)",
	"PUBLIC",
	"SystemDrive",
	"SystemRoot",
	"TEMP",
	"TMP",
	"USERPROFILE",
	"windir",
}

// ErrNoVolumeLabel is returned by StaticVolumeLabels for unknown drives.
var ErrNoVolumeLabel = errors.New("no volume label")

// VolumeLabeler returns the label of a drive such as "C:".
type VolumeLabeler interface {
	VolumeLabel(drive string) (string, error)
}

// StaticVolumeLabels maps drive letters to labels.
type StaticVolumeLabels map[string]string

func (s StaticVolumeLabels) VolumeLabel(drive string) (string, error) {
	letter := strings.ToUpper(strings.TrimSuffix(drive, ":"))
	for key, label := range s {
		if strings.ToUpper(strings.TrimSuffix(key, ":")) == letter {
			return label, nil
		}
	}

	return "", errors.Wrapf(ErrNoVolumeLabel, "drive %s", drive)
}
