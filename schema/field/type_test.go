package field_test

import (
	"testing"

	"github.com/syssam/quarry/schema/field"

	"github.com/stretchr/testify/assert"
)

func TestType(t *testing.T) {
	assert.Equal(t, field.TypeString, field.FromScalar("String"))
	assert.Equal(t, field.TypeTime, field.FromScalar("DateTime"))
	assert.Equal(t, field.TypeInvalid, field.FromScalar("Role"))
	assert.True(t, field.IsScalar("Json"))
	assert.False(t, field.IsScalar("json"))

	assert.Equal(t, "DateTime", field.TypeTime.Scalar())
	assert.Equal(t, "", field.TypeEnum.Scalar())
	assert.Equal(t, "time.Time", field.TypeTime.String())
	assert.Equal(t, "invalid", field.Type(200).String())
	assert.Equal(t, "TypeDecimal", field.TypeDecimal.ConstName())
	assert.Equal(t, "TypeInvalid", field.TypeInvalid.ConstName())

	assert.True(t, field.TypeDecimal.Numeric())
	assert.False(t, field.TypeString.Numeric())
	assert.True(t, field.TypeEnum.Comparable())
	assert.False(t, field.TypeJSON.Comparable())
	assert.True(t, field.TypeString.Text())
	assert.False(t, field.TypeEnum.Text())
	assert.False(t, field.TypeInvalid.Valid())
	assert.Len(t, field.Scalars(), 9)
	for _, s := range field.Scalars() {
		assert.True(t, field.FromScalar(s).Valid(), s)
	}
}
