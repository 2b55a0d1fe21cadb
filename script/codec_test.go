package script

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szuyu2308/Tool-Simulator/types"
)

func TestScriptRoundTrip(t *testing.T) {
	inner := clickCmd("retry-tap", 50, 60)
	loop := New("retry", KindRepeat)
	loop.Repeat = &RepeatSpec{Count: 3, Until: "done == true", Inner: []*Command{inner}}

	crop := New("find-button", KindCropImage)
	crop.CropImage = &CropImageSpec{
		Region:    types.Rect{X1: 0, Y1: 0, X2: 200, Y2: 100},
		Color:     types.RGB{R: 255, G: 128, B: 0},
		Tolerance: 12,
		Scan:      ScanMaxMatch,
		OutputVar: "button",
	}
	crop.OnFail = OnFailGotoLabel
	crop.OnFailLabel = "retry"

	s, err := NewScript([]*Command{loop, crop}, map[string]interface{}{"done": false}, 500, nil)
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Len())
	assert.Equal(t, 500, got.MaxIterations)
	assert.Equal(t, false, got.VariablesGlobal["done"])

	loaded, ok := got.CommandByID(crop.ID)
	require.True(t, ok)
	assert.Equal(t, KindCropImage, loaded.Kind)
	assert.Equal(t, ScanMaxMatch, loaded.CropImage.Scan)
	assert.Equal(t, OnFailGotoLabel, loaded.OnFail)

	// nested commands survive with their ids
	nested, ok := got.CommandByID(inner.ID)
	require.True(t, ok)
	assert.Equal(t, "retry-tap", nested.Name)
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version": 99, "commands": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version": 1,`))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")

	s, err := NewScript([]*Command{clickCmd("only", 1, 2)}, nil, 0, nil)
	require.NoError(t, err)
	require.NoError(t, Save(s, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "only", got.Sequence[0].Name)
}
