package cli

import (
	"fmt"
	"strings"

	"github.com/twitter/taskstate/history"
	"github.com/twitter/taskstate/tree"
)

// commandTask is a task described entirely on the command line. Its input
// properties are strings.
type commandTask struct {
	path       string
	typeName   string
	inputs     []string
	include    []string
	exclude    []string
	outputs    []string
	properties map[string]interface{}
}

func (t *commandTask) Path() string                            { return t.path }
func (t *commandTask) TypeName() string                        { return t.typeName }
func (t *commandTask) DeclaredOutputs() []string               { return t.outputs }
func (t *commandTask) InputProperties() map[string]interface{} { return t.properties }
func (t *commandTask) ValueCodec() history.ValueCodec          { return history.GobCodec{} }

func (t *commandTask) InputFiles() []tree.Tree {
	return inputTrees(t.inputs, t.include, t.exclude)
}

func inputTrees(roots, include, exclude []string) []tree.Tree {
	trees := make([]tree.Tree, 0, len(roots))
	for _, r := range roots {
		trees = append(trees, tree.Tree{Root: r, Include: include, Exclude: exclude})
	}
	return trees
}

// parseProperties turns k=v pairs into a property map.
func parseProperties(pairs []string) (map[string]interface{}, error) {
	props := map[string]interface{}{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("property %q is not of the form name=value", p)
		}
		props[k] = v
	}
	return props, nil
}
