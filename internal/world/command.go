package world

// CommandBuffer is the single pending command line. The input stage
// overwrites it once per tick and the apply stage reads it; the registry
// borrow on component.KindCommandBuffer keeps the two from overlapping.
type CommandBuffer struct {
	line string
}

// Set replaces the pending command.
func (b *CommandBuffer) Set(line string) { b.line = line }

// Line returns the pending command.
func (b *CommandBuffer) Line() string { return b.line }
