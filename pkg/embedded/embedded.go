package embedded

import (
	_ "embed"
)

// Embed melody prompt data files
//
//go:embed data/melody/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/melody/output_format_instructions.txt
var OutputFormatInstructionsTxt []byte
