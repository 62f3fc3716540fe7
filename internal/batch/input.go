package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"partmix/internal/mix"
	"partmix/internal/services"
)

// Input is one named payload submitted to a batch.
type Input struct {
	Name    string
	Payload []byte
}

// buildItems assigns submission indexes and rejects names that cannot serve
// as unique staging keys.
func buildItems(inputs []Input, params mix.Params) ([]mix.Item, error) {
	if params.Balance < 0 || params.Balance > 100 {
		return nil, invalid(fmt.Sprintf("balance must be between 0 and 100, got %d", params.Balance))
	}

	seen := make(map[string]int, len(inputs))
	items := make([]mix.Item, 0, len(inputs))
	for i, input := range inputs {
		name := input.Name
		switch {
		case strings.TrimSpace(name) == "":
			return nil, invalid(fmt.Sprintf("item %d has an empty name", i))
		case name == "." || name == ".." || filepath.Base(name) != name:
			return nil, invalid(fmt.Sprintf("item %d name %q must be a plain file name", i, name))
		}
		if first, dup := seen[name]; dup {
			return nil, invalid(fmt.Sprintf("items %d and %d share the name %q", first, i, name))
		}
		seen[name] = i
		items = append(items, mix.Item{Name: name, Payload: input.Payload, Index: i})
	}

	// Each job writes its output next to the staged companions.
	for _, item := range items {
		output := mix.Job{Primary: item, Params: params}.OutputName()
		if other, clash := seen[output]; clash {
			return nil, invalid(fmt.Sprintf("item %d name %q collides with the output name of %q", other, output, item.Name))
		}
	}
	return items, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "batch", "validate input", message, nil)
}
