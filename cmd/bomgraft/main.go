// Command bomgraft validates engineering BOM exports, grafts work-in-progress
// assemblies from the prior sealed revision and publishes hash-sealed
// artifacts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bomgraft/internal/artifact"
	"bomgraft/pkg/domain"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1 // validation or integrity failure
	exitError  = 2 // usage, I/O or storage error
)

var exitFunc = os.Exit

// errCheckFailed marks a command whose check ran and did not pass; the
// command has already written its report.
var errCheckFailed = errors.New("check failed")

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errCheckFailed) {
		return exitFailed
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var verr domain.ValidationError
	var ierr *artifact.IntegrityError
	if errors.As(err, &verr) || errors.As(err, &ierr) {
		return exitFailed
	}
	return exitError
}
