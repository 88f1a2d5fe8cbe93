package diskvstore

import (
	"testing"

	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/archetype/archetypetest"
)

func TestDiskv(t *testing.T) {
	archetypetest.TestService(t, func(t *testing.T) archetype.Service {
		return New(t.TempDir())
	})
}
