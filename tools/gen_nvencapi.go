// Package main generates the NV_ENCODE_API_FUNCTION_LIST layout from nvEncodeAPI.h.
//
// NOTE: This generator uses simple regex-based parsing which works for the
// nvEncodeAPI.h shipped with SDK 8.0 through 13.0 but may be fragile with
// future header changes.
package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <path-to-nvEncodeAPI.h>\n", os.Args[0])
		os.Exit(1)
	}

	headerPath := os.Args[1]
	file, err := os.Open(headerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open header file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	inStruct := false
	lineNum := 0
	structLineNum := 0
	reservedTail := -1
	var slots []Slot

	functionListPattern := regexp.MustCompile(`^typedef struct _NV_ENCODE_API_FUNCTION_LIST\b`)
	headerFieldPattern := regexp.MustCompile(`^\s*uint32_t\s+(version|reserved)\s*;`)
	functionPtrPattern := regexp.MustCompile(`^\s*(PNVENC\w+)\s+(nvEnc\w+)\s*;`)
	reservedSlotPattern := regexp.MustCompile(`^\s*void\s*\*\s*(reserved\d*)\s*;`)
	reservedTailPattern := regexp.MustCompile(`^\s*void\s*\*\s*reserved\d*\s*\[\s*(\d+)\s*\]\s*;`)
	endStructPattern := regexp.MustCompile(`^\s*\}\s*NV_ENCODE_API_FUNCTION_LIST\s*;`)

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if !inStruct {
			if functionListPattern.MatchString(line) {
				inStruct = true
				structLineNum = lineNum
				fmt.Printf("// Found NV_ENCODE_API_FUNCTION_LIST at line %d\n", lineNum)
			}
			continue
		}

		if endStructPattern.MatchString(line) {
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "{" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			continue
		}

		switch {
		case headerFieldPattern.MatchString(line):
			continue
		case functionPtrPattern.MatchString(line):
			matches := functionPtrPattern.FindStringSubmatch(line)
			slots = append(slots, Slot{Name: matches[2], Type: matches[1], LineNum: lineNum})
		case reservedTailPattern.MatchString(line):
			matches := reservedTailPattern.FindStringSubmatch(line)
			n, err := strconv.Atoi(matches[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid reserved tail length on line %d: %v\n", lineNum, err)
				os.Exit(1)
			}
			reservedTail = n
		case reservedSlotPattern.MatchString(line):
			matches := reservedSlotPattern.FindStringSubmatch(line)
			slots = append(slots, Slot{Reserved: matches[1], LineNum: lineNum})
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if !inStruct {
		fmt.Fprintf(os.Stderr, "Error: NV_ENCODE_API_FUNCTION_LIST not found in %s\n", headerPath)
		os.Exit(1)
	}
	if reservedTail < 0 {
		fmt.Fprintf(os.Stderr, "Error: reserved tail array not found. Parser may be broken.\n")
		os.Exit(1)
	}

	// SDK 8.0 declares 38 slots; later SDKs only append.
	if len(slots) < 38 || len(slots) > 64 {
		fmt.Fprintf(os.Stderr, "Warning: Parsed %d slots, expected 38-64. Header may have changed.\n", len(slots))
	}

	seen := make(map[string]bool)
	for _, slot := range slots {
		if slot.Name == "" {
			continue
		}
		if seen[slot.Name] {
			fmt.Fprintf(os.Stderr, "Error: Duplicate function name: %s\n", slot.Name)
			os.Exit(1)
		}
		seen[slot.Name] = true
	}

	// Validate key slot positions to catch parser bugs
	keySlots := map[string]int{
		"nvEncOpenEncodeSession":   1,
		"nvEncInitializeEncoder":   12,
		"nvEncOpenEncodeSessionEx": 30,
		"nvEncReconfigureEncoder":  33,
		"nvEncGetLastErrorString":  38,
	}

	for name, expectedPos := range keySlots {
		found := false
		for i, slot := range slots {
			if slot.Name == name {
				actualPos := i + 1 // 1-indexed
				if actualPos != expectedPos {
					fmt.Fprintf(os.Stderr, "Error: Key function '%s' found at slot %d, expected %d. Parser may be broken.\n", name, actualPos, expectedPos)
					os.Exit(1)
				}
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "Error: Key function '%s' not found. Parser may be broken.\n", name)
			os.Exit(1)
		}
	}

	fmt.Printf("// Parsed %d slots and %d reserved trailing pointers\n\n", len(slots), reservedTail)

	generateGoLayout(slots, reservedTail, headerPath, structLineNum)
}

type Slot struct {
	Name     string
	Type     string
	Reserved string
	LineNum  int
}

func generateGoLayout(slots []Slot, reservedTail int, headerPath string, structLineNum int) {
	fmt.Println("package nvcodec")
	fmt.Println()
	fmt.Printf("// Auto-generated from: %s\n", headerPath)
	fmt.Printf("// Generated on: %s\n", time.Now().Format(time.RFC3339))
	fmt.Println("// Generator: tools/gen_nvencapi.go")
	fmt.Printf("// Found NV_ENCODE_API_FUNCTION_LIST at line %d\n", structLineNum)
	fmt.Printf("// Parsed %d function pointer slots\n", len(slots))
	fmt.Println("//")
	fmt.Println("// DO NOT EDIT MANUALLY - regenerate using tools/gen_nvencapi.go")
	fmt.Println()
	fmt.Println("// nvencFunctionListSlots names the function pointer slots of")
	fmt.Println("// NV_ENCODE_API_FUNCTION_LIST in declaration order. Reserved slots are empty.")
	fmt.Println("var nvencFunctionListSlots = [...]string{")
	width := 0
	for _, slot := range slots {
		width = max(width, len(strconv.Quote(slot.Name))+1)
	}
	for i, slot := range slots {
		entry := strconv.Quote(slot.Name) + ","
		if slot.Name == "" {
			fmt.Printf("\t%-*s // Slot %d (%s)\n", width, entry, i+1, slot.Reserved)
			continue
		}
		fmt.Printf("\t%-*s // Slot %d\n", width, entry, i+1)
	}
	fmt.Println("}")
	fmt.Println()
	fmt.Println("// nvEncodeAPIFunctionList mirrors NV_ENCODE_API_FUNCTION_LIST.")
	fmt.Println("type nvEncodeAPIFunctionList struct {")
	fmt.Println("\tVersion   uint32")
	fmt.Println("\tReserved  uint32")
	fmt.Println("\tFunctions [len(nvencFunctionListSlots)]uintptr")
	fmt.Printf("\tReserved2 [%d]uintptr\n", reservedTail)
	fmt.Println("}")
}
