//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed with validation layers enabled.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "ember.toml"), withEnv("EMBER_VALIDATION", "true"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the test suite. None of the tests need a GPU.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
