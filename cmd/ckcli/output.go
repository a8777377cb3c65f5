package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/certkeeper/certkeeper/internal/utils"
	"github.com/certkeeper/certkeeper/verification"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStruct(v any) error {
	if outputJSON {
		return printJSON(v)
	}
	fmt.Println(strings.Join(utils.KeyValueLines(v), "\n"))
	return nil
}

func printResult(label string, res verification.Result) {
	if label != "" {
		fmt.Printf("== %s\n", label)
	}
	fmt.Printf("valid: %t\n", res.Valid)
	fmt.Printf("message: %s\n", res.Message)
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.Data != nil {
		for _, l := range utils.KeyValueLines(res.Data) {
			fmt.Printf("  %s\n", l)
		}
	}
}
