package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iho/entryledger/internal/domain"
)

func lookup(t *testing.T, value any) bson.RawValue {
	t.Helper()

	raw, err := bson.Marshal(bson.D{{Key: "balance", Value: value}})
	require.NoError(t, err)

	return bson.Raw(raw).Lookup("balance")
}

func TestRawToDecimal(t *testing.T) {
	dec, err := primitive.ParseDecimal128("-250")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  decimal.Decimal
	}{
		{name: "int32", value: int32(42), want: decimal.NewFromInt(42)},
		{name: "int64", value: int64(-7_000_000_000), want: decimal.NewFromInt(-7_000_000_000)},
		{name: "double", value: 12.5, want: decimal.RequireFromString("12.5")},
		{name: "decimal128", value: dec, want: decimal.NewFromInt(-250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rawToDecimal(lookup(t, tt.value))

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestRawToDecimalRejectsNonNumeric(t *testing.T) {
	_, err := rawToDecimal(lookup(t, "100"))

	assert.ErrorIs(t, err, domain.ErrMalformedBalance)
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestBalancePipelineFiltersAfterUnwind(t *testing.T) {
	pipeline := balancePipeline("acc-1")

	require.Len(t, pipeline, 3)
	assert.Equal(t, "$unwind", pipeline[0][0].Key)
	assert.Equal(t, "$match", pipeline[1][0].Key)
	assert.Equal(t, bson.D{{Key: "entries.accountId", Value: "acc-1"}}, pipeline[1][0].Value)
	assert.Equal(t, "$group", pipeline[2][0].Key)
}

func TestConsistencyPipelineFacets(t *testing.T) {
	pipeline := consistencyPipeline()

	require.Len(t, pipeline, 1)
	facets, ok := pipeline[0][0].Value.(bson.D)
	require.True(t, ok)

	var names []string
	for _, f := range facets {
		names = append(names, f.Key)
	}

	assert.Equal(t, []string{"transactions", "entries", "unbalanced", "invalid"}, names)
}

func TestCountFacetValue(t *testing.T) {
	assert.Equal(t, int64(0), countFacet(nil).value())
	assert.Equal(t, int64(3), countFacet{{N: 3}}.value())
}
