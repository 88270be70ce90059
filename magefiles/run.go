//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds everything and runs the engine windowed.
func (Run) Engine() error {
	mg.SerialDeps(Build.Shaders, Build.Game)
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", "."), withStream())
	return err
}

// Builds everything and exports frames without opening a window.
func (Run) Headless() error {
	mg.SerialDeps(Build.Shaders, Build.Game)
	fmt.Println("Run headless export...")
	_, err := executeCmd("go", withArgs("run", ".", "--headless", "--frames", "120", "--output-dir", "frames"), withStream())
	return err
}
