package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ValueTypes(t *testing.T) {
	t.Run("Should parse boolean spellings case-insensitively", func(t *testing.T) {
		for _, raw := range []string{"1", "true", "YES", "On"} {
			v, err := Bool.Parse(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, true, v, raw)
		}
		for _, raw := range []string{"0", "false", "NO", "Off"} {
			v, err := Bool.Parse(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, false, v, raw)
		}
		_, err := Bool.Parse("maybe")
		assert.Error(t, err)
	})
	t.Run("Should parse integers and reject non-integers", func(t *testing.T) {
		v, err := Int.Parse("42")
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		_, err = Int.Parse("4.2")
		assert.Error(t, err)
	})
	t.Run("Should clean path values and reject empty ones", func(t *testing.T) {
		v, err := Path.Parse("a//b/./c")
		require.NoError(t, err)
		assert.Equal(t, "a/b/c", v)
		_, err = Path.Parse("")
		assert.Error(t, err)
	})
	t.Run("Should restrict enums to their choices", func(t *testing.T) {
		e := Enum("ufs", "zfs")
		v, err := e.Parse("zfs")
		require.NoError(t, err)
		assert.Equal(t, "zfs", v)
		_, err = e.Parse("ext4")
		assert.Error(t, err)
		assert.True(t, e.Accepts("ufs"))
		assert.False(t, e.Accepts(3))
	})
	t.Run("Should accept assignable values for custom types and refuse to parse them", func(t *testing.T) {
		type handle struct{ n int }
		typ := ValueOf[*handle]("handle")
		assert.True(t, typ.Accepts(&handle{n: 1}))
		assert.False(t, typ.Accepts("nope"))
		_, err := typ.Parse("anything")
		assert.Error(t, err)
	})
}

func Test_Parameter(t *testing.T) {
	t.Run("Should expose its declaration through accessors", func(t *testing.T) {
		p, err := newParameter("jobs", ParameterSpec{
			Description: "build jobs",
			Type:        Int,
			Default:     4,
			Required:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "jobs", p.Name())
		assert.Equal(t, "build jobs", p.Description())
		assert.Equal(t, "int", p.Type().Name())
		assert.True(t, p.Required())
		val, err := p.DefaultValue()
		require.NoError(t, err)
		assert.Equal(t, 4, val)
	})
	t.Run("Should default the type to string", func(t *testing.T) {
		p, err := newParameter("branch", ParameterSpec{})
		require.NoError(t, err)
		assert.Equal(t, "string", p.Type().Name())
	})
	t.Run("Should reject a default that does not match the type", func(t *testing.T) {
		_, err := newParameter("jobs", ParameterSpec{Type: Int, Default: "four"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_DEFAULT")
	})
	t.Run("Should resolve chained lazy defaults", func(t *testing.T) {
		inner := Resolver(func() any { return 7 })
		outer := Resolver(func() any { return inner })
		p, err := newParameter("jobs", ParameterSpec{Type: Int, Default: outer})
		require.NoError(t, err)
		val, err := p.DefaultValue()
		require.NoError(t, err)
		assert.Equal(t, 7, val)
	})
	t.Run("Should bound resolver depth", func(t *testing.T) {
		var loop Resolver
		loop = func() any { return loop }
		_, err := newParameter("jobs", ParameterSpec{Type: Int, Default: loop})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not settle")
	})
	t.Run("Should wrap coercion failures with the parameter name and raw text", func(t *testing.T) {
		p, err := newParameter("jobs", ParameterSpec{Type: Int})
		require.NoError(t, err)
		_, err = p.Coerce("lots")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"jobs"`)
		assert.Contains(t, err.Error(), `"lots"`)
		v, err := p.Coerce("9")
		require.NoError(t, err)
		assert.Equal(t, 9, v)
	})
}
