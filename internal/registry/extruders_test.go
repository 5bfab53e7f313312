package registry

import (
	"testing"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/stretchr/testify/assert"
)

func TestExtruderIndex_Register(t *testing.T) {
	idx := NewExtruderIndex()

	ext0 := &container.Container{ID: "printer_a_ext_0", Class: container.ClassStack, Kind: container.KindExtruder}
	ext1 := &container.Container{ID: "printer_a_ext_1", Class: container.ClassStack, Kind: container.KindExtruder}

	idx.Register("printer_a", "0", ext0)
	idx.Register("printer_a", "1", ext1)

	trains := idx.ByMachine("printer_a")
	assert.Len(t, trains, 2)
	assert.Equal(t, "printer_a_ext_0", trains["0"].ID)
	assert.Equal(t, "printer_a_ext_1", trains["1"].ID)

	assert.Empty(t, idx.ByMachine("other_machine"))
}

func TestExtruderIndex_SamePositionReplaces(t *testing.T) {
	idx := NewExtruderIndex()

	idx.Register("printer_a", "0", &container.Container{ID: "old_ext"})
	idx.Register("printer_a", "0", &container.Container{ID: "new_ext"})

	trains := idx.ByMachine("printer_a")
	assert.Len(t, trains, 1)
	assert.Equal(t, "new_ext", trains["0"].ID)
}

func TestExtruderIndex_ByMachineReturnsCopy(t *testing.T) {
	idx := NewExtruderIndex()
	idx.Register("printer_a", "0", &container.Container{ID: "ext"})

	trains := idx.ByMachine("printer_a")
	delete(trains, "0")

	assert.Len(t, idx.ByMachine("printer_a"), 1)
}
