package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// selectChains prints a 1-indexed list of chain names plus a final "Monitor All" option and
// reads a single line from in. Invalid or unreadable input defaults to every chain name.
func selectChains(out io.Writer, in io.Reader, chains map[string]chainConfig) []string {
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return names
	}

	fmt.Fprintln(out, "\nSelect chain to monitor:")
	for i, name := range names {
		fmt.Fprintf(out, "  %d. %s\n", i+1, name)
	}
	fmt.Fprintf(out, "  %d. Monitor All\n", len(names)+1)
	fmt.Fprintf(out, "\n> Enter selection [1-%d]: ", len(names)+1)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return names
	}

	choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || choice <= 0 || choice > len(names) {
		return names
	}

	return []string{names[choice-1]}
}
