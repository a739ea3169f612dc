package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

func TestFrame_ErrorHidesData(t *testing.T) {
	f := FromSnapshot(ports.Snapshot{SessionID: "s", Exists: true, Data: []byte(`{}`), Err: errors.New("boom")})
	assert.False(t, f.Exists)
	assert.Nil(t, f.Data)

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"s","exists":false,"error":"boom"}`, string(raw))

	snap := f.Snapshot()
	assert.EqualError(t, snap.Err, "boom")
}

func TestFrame_NotFoundCarriesNoData(t *testing.T) {
	raw, err := json.Marshal(FromSnapshot(ports.Snapshot{SessionID: "s"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"s","exists":false}`, string(raw))
}

func TestFrame_DocumentEmbeddedVerbatim(t *testing.T) {
	doc := `{"topic":"t","revealed":false}`
	raw, err := json.Marshal(FromSnapshot(ports.Snapshot{SessionID: "s", Exists: true, Data: []byte(doc)}))
	require.NoError(t, err)

	var f Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	snap := f.Snapshot()
	assert.True(t, snap.Exists)
	assert.JSONEq(t, doc, string(snap.Data))
}
