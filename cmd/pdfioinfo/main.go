// Command pdfioinfo opens a PDF file and prints a summary of what the core
// found: its version, object and page counts, and the number of entries in
// the trailer's /ID array if one is present. It exists to exercise the whole
// read path end to end.
package main

import (
	"fmt"
	"os"

	"github.com/Lance219/pdfio"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.pdf>\n", os.Args[0])
		os.Exit(2)
	}

	f, err := pdfio.Open(os.Args[1], pdfio.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfioinfo: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("file:    %s\n", f.Name())
	fmt.Printf("version: %s\n", f.Version())
	fmt.Printf("objects: %d\n", f.NumObjects())
	fmt.Printf("pages:   %d\n", f.NumPages())
	if id := f.ID(); id != nil && id.Len() > 0 {
		fmt.Printf("id:      %d entries\n", id.Len())
	}
}
