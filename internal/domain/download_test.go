package domain

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskDescriptor(t *testing.T) {
	desc, err := ParseTaskDescriptor("Show A:42:37")
	require.NoError(t, err)
	assert.Equal(t, "Show A", desc.Title)
	assert.Equal(t, 42.0, desc.VideoID)
	assert.Equal(t, 37, desc.Percent)

	desc, err = ParseTaskDescriptor("Show B:4.5:100")
	require.NoError(t, err)
	assert.Equal(t, 4.5, desc.VideoID)
}

func TestParseTaskDescriptor_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no colons", "Show A"},
		{"one colon", "Show A:42"},
		{"three colons", "Show:A:42:10"},
		{"non numeric id", "Show A:abc:10"},
		{"nan id", "Show A:NaN:10"},
		{"infinite id", "Show A:Inf:10"},
		{"negative infinite id", "Show A:-Infinity:10"},
		{"non integer percent", "Show A:42:1.5"},
		{"percent above range", "Show A:42:101"},
		{"negative percent", "Show A:42:-1"},
		{"empty title", ":42:10"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTaskDescriptor(tt.input)
			assert.ErrorIs(t, err, ErrMalformedDescriptor)
		})
	}
}

func TestTaskDescriptor_WithPercentPreservesIdentity(t *testing.T) {
	original := NewTaskDescriptor("Show A", 42)
	assert.Equal(t, "Show A:42:0", original.String())

	for _, percent := range []int{1, 37, 90, 100} {
		updated, err := ParseTaskDescriptor(original.WithPercent(percent).String())
		require.NoError(t, err)
		assert.Equal(t, original.Title, updated.Title)
		assert.Equal(t, original.VideoID, updated.VideoID)
		assert.Equal(t, percent, updated.Percent)
	}

	assert.Equal(t, 100, original.WithPercent(250).Percent)
	assert.Equal(t, 0, original.WithPercent(-3).Percent)
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Show A"))
	assert.ErrorIs(t, ValidateTitle("  "), ErrMalformedDescriptor)
	assert.ErrorIs(t, ValidateTitle("Part:2"), ErrMalformedDescriptor)
}

func TestDownloadRequest_Validate(t *testing.T) {
	assert.NoError(t, DownloadRequest{Title: "Show A", ContentID: "DW_1-VO", VideoID: 1}.Validate())
	assert.ErrorIs(t, DownloadRequest{Title: "Show A"}.Validate(), ErrMissingContentID)
	assert.ErrorIs(t, DownloadRequest{ContentID: "x"}.Validate(), ErrMalformedDescriptor)
}

func TestKeyURLIdentifiers(t *testing.T) {
	u, err := url.Parse("skd://HLS_1-VO;asset-1")
	require.NoError(t, err)
	assert.Equal(t, "asset-1", AssetIDFromKeyURL(u))
	assert.Equal(t, "HLS_1-VO", ContentIDFromKeyURL(u))

	u, err = url.Parse("skd://HLS_2-VF")
	require.NoError(t, err)
	assert.Equal(t, "HLS_2-VF", AssetIDFromKeyURL(u))
	assert.Equal(t, "HLS_2-VF", ContentIDFromKeyURL(u))
}

func TestTaskInfo_DecodesState(t *testing.T) {
	info := TaskInfo{
		ID:         "task-1",
		Descriptor: TaskDescriptor{Title: "Show A", VideoID: 42, Percent: 10},
		State:      TaskSuspended,
	}
	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"suspended"`)

	var decoded TaskInfo
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, info, decoded)

	var state TaskState
	assert.Error(t, json.Unmarshal([]byte(`"paused"`), &state))
}
