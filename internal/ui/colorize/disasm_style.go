package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register our custom disassembly style on package initialization
	_ = PoolDark
}

// PoolDark is a custom style for the matched pool-load listings
var PoolDark = styles.Register(chroma.MustNewStyle("pool-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",    // Default text white
	chroma.Background:     "bg:#1e1e1e", // Dark background
	chroma.Comment:        "#FFFFFF",    // White comments
	chroma.CommentPreproc: "#FFFFFF",    // Same for preprocessor comments

	// Instruction mnemonics
	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.NameFunction:  "#FFFFFF", // Some lexers tokenize mnemonics as functions

	// Registers in teal
	chroma.Name:         "#7C9C9D",
	chroma.NameBuiltin:  "#7C9C9D",
	chroma.NameVariable: "#7C9C9D",

	// Immediates and addresses in pink
	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberBin:     "#FF5F87",
	chroma.LiteralNumberOct:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	// Labels in gold
	chroma.NameLabel: "#FFD700",

	// Operators and punctuation
	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
}))
