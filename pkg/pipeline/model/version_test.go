package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected model.Version
		wantErr  bool
	}{
		"major only":      {input: "9", expected: model.NewVersion(9)},
		"two components":  {input: "18.0", expected: model.NewVersion(18, 0)},
		"four components": {input: "2.1.3.4", expected: model.NewVersion(2, 1, 3, 4)},
		"spaces":          {input: " 2.1 ", expected: model.NewVersion(2, 1)},
		"empty":           {input: "", wantErr: true},
		"too many":        {input: "1.2.3.4.5", wantErr: true},
		"not a number":    {input: "1.x", wantErr: true},
		"overflow":        {input: "70000", wantErr: true},
		"negative":        {input: "1.-2", wantErr: true},
		"empty component": {input: "1..2", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := model.ParseVersion(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, model.ErrInvalidVersion)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		version  model.Version
		expected string
	}{
		"all zero":        {version: model.Version{}, expected: "0.0"},
		"trailing zeros":  {version: model.NewVersion(2, 0, 0, 0), expected: "2.0"},
		"build kept":      {version: model.NewVersion(2, 1, 3, 0), expected: "2.1.3"},
		"revision kept":   {version: model.NewVersion(2, 0, 0, 5), expected: "2.0.0.5"},
		"minor kept":      {version: model.NewVersion(18, 4), expected: "18.4"},
		"inner zero kept": {version: model.NewVersion(1, 0, 2), expected: "1.0.2"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tc.version.String())
		})
	}
}

func TestVersionCompare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, model.NewVersion(2).Compare(model.MustParseVersion("2.0.0.0")))
	assert.Equal(t, -1, model.NewVersion(2, 0, 0, 1).Compare(model.NewVersion(2, 0, 1)))
	assert.Equal(t, 1, model.NewVersion(10).Compare(model.NewVersion(9, 9, 9, 9)))
	assert.True(t, model.NewVersion(9).Less(model.NewVersion(9, 0, 0, 1)))
	assert.Equal(t, model.NewVersion(18), model.MaxVersion(model.NewVersion(9), model.NewVersion(18), model.NewVersion(10)))
	assert.Equal(t, model.NewVersion(9), model.MaxVersion(model.NewVersion(9)))
}

func TestVersionText(t *testing.T) {
	t.Parallel()

	text, err := model.NewVersion(2, 1, 3).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2.1.3", string(text))

	var v model.Version
	require.NoError(t, v.UnmarshalText([]byte("16.0.0.2")))
	assert.Equal(t, model.NewVersion(16, 0, 0, 2), v)
	assert.Error(t, v.UnmarshalText([]byte("nope")))
}

func TestParseEditMode(t *testing.T) {
	t.Parallel()

	mode, err := model.ParseEditMode("Expert")
	require.NoError(t, err)
	assert.Equal(t, model.EditModeExpert, mode)
	assert.Equal(t, "expert", mode.String())

	mode, err = model.ParseEditMode("")
	require.NoError(t, err)
	assert.Equal(t, model.EditModeSimple, mode)

	_, err = model.ParseEditMode("wizard")
	assert.ErrorIs(t, err, model.ErrInvalidEditMode)
}
