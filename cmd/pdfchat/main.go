// Command pdfchat ingests a PDF into a vector store and answers questions
// about it with a language model, grounded only in the retrieved chunks.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/pdfchat-go/cmd/pdfchat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
