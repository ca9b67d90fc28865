//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
var Default = Build

// Build compiles every executable into ./bin.
func Build() error {
	mg.Deps(BuildDecoder, BuildCalibImport)
	fmt.Println("Compilation finished")
	return nil
}

func BuildDecoder() error {
	fmt.Println("Building showerdecoder executable...")
	return goBuild("./bin/showerdecoder", "./showerdecoder")
}

func BuildCalibImport() error {
	fmt.Println("Building calibimport executable...")
	return goBuild("./bin/calibimport", "./calibimport")
}

// Test runs the library tests. HDF5 is linked through cgo.
func Test() error {
	cmd := exec.Command("go", "test", "./pkg/...", "./showerdecoder/...")
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output, pkg string) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func cgoEnv() []string {
	return append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
}
