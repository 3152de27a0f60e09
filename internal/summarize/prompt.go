package summarize

// InstructionSuffix is appended to every block before it is sent.
const InstructionSuffix = "\n<END>\n\nCreate a comprehensive plot synopsis of this part of a chapter from a book.\nMake your plot synopsis as lengthy and detailed as possible."

// DryRunText is returned instead of a synopsis in dry-run mode.
const DryRunText = "Dry run"

// BuildPrompt appends the synopsis instruction to a block's text.
func BuildPrompt(blockText string) string {
	return blockText + InstructionSuffix
}
