package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/xlator"
)

// stub is a translator embedding xlator.Base with no overrides, used
// to exercise the graph builder without any real FOP logic.
type stub struct {
	xlator.Base
}

func newStub(name string, _ map[string]string, children []xlator.Translator, e *stack.Engine) (xlator.Translator, error) {
	s := &stub{Base: xlator.NewBase(name, e)}
	s.Bind(s)
	return s, nil
}

func TestLoadDecodesGraphSpec(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	doc := []byte(`
top: client
translators:
  - type: posix
    name: brick
    subvolumes: []
  - type: client
    name: client
    subvolumes: [brick]
`)
	require.NoError(t, v.ReadConfig(bytes.NewReader(doc)))

	spec, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "client", spec.Top)
	require.Len(t, spec.Translators, 2)
	require.Equal(t, []string{"brick"}, spec.Translators[1].Subvolumes)
}

func TestBuildWiresChildrenAndParentsLeavesFirst(t *testing.T) {
	spec := GraphSpec{
		Top: "client",
		Translators: []TranslatorSpec{
			{Type: "posix", Name: "brick"},
			{Type: "client", Name: "client", Subvolumes: []string{"brick"}},
		},
	}
	reg := Registry{"posix": newStub, "client": newStub}
	engine := stack.NewEngine()

	top, err := Build(spec, reg, engine)
	require.NoError(t, err)
	require.Equal(t, "client", top.Name())

	children := top.Children()
	require.Len(t, children, 1)
	require.Equal(t, "brick", children[0].Name())
	require.Len(t, children[0].Parents(), 1)
	require.Equal(t, "client", children[0].Parents()[0].Name())
}

func TestBuildRejectsForwardSubvolumeReference(t *testing.T) {
	spec := GraphSpec{
		Top: "client",
		Translators: []TranslatorSpec{
			{Type: "client", Name: "client", Subvolumes: []string{"brick"}},
			{Type: "posix", Name: "brick"},
		},
	}
	reg := Registry{"posix": newStub, "client": newStub}
	_, err := Build(spec, reg, stack.NewEngine())
	require.Error(t, err)
}

func TestBuildRejectsUnknownType(t *testing.T) {
	spec := GraphSpec{
		Top:         "x",
		Translators: []TranslatorSpec{{Type: "nonexistent", Name: "x"}},
	}
	_, err := Build(spec, Registry{}, stack.NewEngine())
	require.Error(t, err)
}
