package milvus

import (
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchemaFromDefaults(t *testing.T) {
	schema, err := BuildSchema(config.DefaultMemorySchema("memories", 768))
	require.NoError(t, err)
	assert.Equal(t, "memories", schema.CollectionName)

	var vec *entity.Field
	for _, f := range schema.Fields {
		if f.Name == "embedding" {
			vec = f
		}
		if f.Name == "id" {
			assert.True(t, f.PrimaryKey)
		}
	}
	require.NotNil(t, vec)
	assert.Equal(t, entity.FieldTypeFloatVector, vec.DataType)
	assert.Equal(t, "768", vec.TypeParams[entity.TypeParamDim])
}

func TestBuildSchemaRejectsUnknownType(t *testing.T) {
	cfg := config.DefaultMemorySchema("memories", 8)
	cfg.Fields = append(cfg.Fields, config.FieldConfig{Name: "blob", DataType: "JSON"})
	_, err := BuildSchema(cfg)
	assert.Error(t, err)
}

func TestBuildIndex(t *testing.T) {
	idx, err := BuildIndex(config.IndexConfig{IndexType: "IVF_FLAT", MetricType: "L2", Params: map[string]interface{}{"nlist": float64(64)}})
	require.NoError(t, err)
	assert.Equal(t, entity.IvfFlat, idx.IndexType())

	_, err = BuildIndex(config.IndexConfig{IndexType: "DISKANN", MetricType: "L2"})
	assert.Error(t, err)
}
