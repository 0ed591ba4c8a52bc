package main

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// maxLineBytes bounds a single prompt line.
const maxLineBytes = 1 << 20

// promptLoop reads prompts from in until EOF, an exit command or ctx is
// cancelled, calling handle for every non-blank line.
func promptLoop(ctx context.Context, in io.Reader, u *ui, handle func(line string)) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for ctx.Err() == nil {
		u.prompt()
		if !sc.Scan() {
			u.println("")
			break
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			break
		}

		handle(line)
	}

	u.notice("Exiting Pollinations AI script. Goodbye!")

	return sc.Err()
}
