package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/hamba/avro/v2/ocf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/mocks"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func openFileSource(t *testing.T, cfg FileConfig) *FileSource {
	t.Helper()
	src, err := NewFileSource(cfg, adapter.NewFileSystem())
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestFileSource_JSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "alerts.json", `[
		{"alert_id": 1, "dia_source_id": 11, "ra": 10.5, "dec": -5, "mjd": 60000.25, "ss_object_id": "SSO_1", "has_ss_source": true},
		{"alertId": 2, "diaSource": {"diaSourceId": 12, "ra": 11, "decl": 4, "midPointTai": 60001, "extendedness": 0.4}}
	]`)

	src := openFileSource(t, FileConfig{Path: path})
	alerts, errs := collect(t, src, 0)
	require.Empty(t, errs)
	require.Len(t, alerts, 2)

	first, err := domain.NewAlertFromRaw(alerts[0])
	require.NoError(t, err)
	assert.Equal(t, int64(11), first.DetectionID)
	assert.Equal(t, "SSO_1", *first.AssociatedObjectID)

	second, err := domain.NewAlertFromRaw(alerts[1])
	require.NoError(t, err)
	assert.Equal(t, int64(12), second.DetectionID)
	assert.Equal(t, 0.4, *second.ExtendednessMedian)
}

func TestFileSource_JSONLinesSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "alerts.jsonl",
		`{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000}`+"\n"+
			`{"alert_id": 2, "dia_source_id": `+"\n"+
			"\n"+
			`{"alert_id": 3, "dia_source_id": 13, "ra": 3, "dec": 3, "mjd": 60002}`+"\n")

	src := openFileSource(t, FileConfig{Path: path})
	alerts, errs := collect(t, src, 0)
	assert.Len(t, alerts, 2)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrValidation))
}

func TestFileSource_CSVWithBrokerColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "alerts.csv",
		"alertId,diaSourceId,ra,decl,midPointTai,filterName,extendednessMedian,ssObjectId,hasSSSource\n"+
			"1,11,10.0,-3.5,60000.5,r,0.45,SSO_9,true\n"+
			"2,12,20.0,4.0,60001.5,g,,,\n")

	src := openFileSource(t, FileConfig{Path: path})
	alerts, errs := collect(t, src, 0)
	require.Empty(t, errs)
	require.Len(t, alerts, 2)

	first, err := domain.NewAlertFromRaw(alerts[0])
	require.NoError(t, err)
	assert.Equal(t, domain.FilterBandR, first.FilterBand)
	assert.True(t, first.HasAssociatedObject)
	assert.Equal(t, "SSO_9", *first.AssociatedObjectID)

	second, err := domain.NewAlertFromRaw(alerts[1])
	require.NoError(t, err)
	assert.Nil(t, second.ExtendednessMedian)
	assert.False(t, second.HasAssociatedObject)
}

func TestFileSource_DirectoryAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/second.jsonl", `{"alert_id": 3, "dia_source_id": 13, "ra": 1, "dec": 1, "mjd": 60002}`+"\n")
	writeFile(t, dir, "a/first.json", `[{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000},
		{"alert_id": 2, "dia_source_id": 12, "ra": 1, "dec": 1, "mjd": 60001}]`)
	writeFile(t, dir, "notes.txt", "ignored")

	src := openFileSource(t, FileConfig{Path: dir})
	require.Len(t, src.Files(), 2)

	alerts, errs := collect(t, src, 0)
	require.Empty(t, errs)
	require.Len(t, alerts, 3)
	assert.Equal(t, json.Number("1"), alerts[0][domain.KeyAlertID])

	limited, _ := collect(t, src, 2)
	assert.Len(t, limited, 2)
}

func TestFileSource_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.csv", "alert_id,dia_source_id,ra,dec,mjd\n1,11,1,1,60000\n")
	writeFile(t, dir, "two.csv", "alert_id,dia_source_id,ra,dec,mjd\n2,12,1,1,60001\n")
	writeFile(t, dir, "three.json", `[]`)

	src := openFileSource(t, FileConfig{Path: filepath.Join(dir, "*.csv")})
	alerts, errs := collect(t, src, 0)
	require.Empty(t, errs)
	assert.Len(t, alerts, 2)
}

func TestFileSource_Avro(t *testing.T) {
	schema := `{
		"type": "record",
		"name": "alert",
		"fields": [
			{"name": "alert_id", "type": "long"},
			{"name": "dia_source_id", "type": "long"},
			{"name": "ra", "type": "double"},
			{"name": "dec", "type": "double"},
			{"name": "mjd", "type": "double"},
			{"name": "filter_name", "type": "string"}
		]
	}`

	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.avro")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := ocf.NewEncoder(schema, f)
	require.NoError(t, err)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, enc.Encode(map[string]any{
			"alert_id":      i,
			"dia_source_id": 100 + i,
			"ra":            10.0 * float64(i),
			"dec":           -1.0,
			"mjd":           60000.0 + float64(i),
			"filter_name":   "i",
		}))
	}
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	src := openFileSource(t, FileConfig{Path: path})
	alerts, errs := collect(t, src, 0)
	require.Empty(t, errs)
	require.Len(t, alerts, 3)

	alert, err := domain.NewAlertFromRaw(alerts[2])
	require.NoError(t, err)
	assert.Equal(t, int64(103), alert.DetectionID)
	assert.Equal(t, domain.FilterBandI, alert.FilterBand)
}

func TestFileSource_ConnectErrors(t *testing.T) {
	_, err := NewFileSource(FileConfig{}, nil)
	assert.Error(t, err)

	_, err = NewFileSource(FileConfig{Path: "x", Format: "parquet"}, nil)
	assert.Error(t, err)

	src, err := NewFileSource(FileConfig{Path: filepath.Join(t.TempDir(), "missing.json")}, nil)
	require.NoError(t, err)
	err = src.Connect(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	src, err = NewFileSource(FileConfig{Path: filepath.Join(t.TempDir(), "*.json")}, nil)
	require.NoError(t, err)
	err = src.Connect(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestFileSource_OpenFailureEndsSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fsMock := mocks.NewMockFileSystem(ctrl)
	fsMock.EXPECT().Glob("alerts/*.json").Return([]string{"alerts/a.json"}, nil)
	fsMock.EXPECT().Open("alerts/a.json").Return(nil, os.ErrPermission)

	src, err := NewFileSource(FileConfig{Path: "alerts/*.json"}, fsMock)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))

	alerts, errs := collect(t, src, 0)
	assert.Empty(t, alerts)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrSourceUnavailable))
	assert.True(t, errors.Is(errs[0], os.ErrPermission))
}

func TestFileSource_MalformedJSONArrayFailsSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.json", `[{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000}, {"alert_id": `)

	src := openFileSource(t, FileConfig{Path: path})
	alerts, errs := collect(t, src, 0)
	assert.Len(t, alerts, 1)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrSourceUnavailable))
}
