//go:build mage

package main

import (
	"fmt"
	"runtime"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderNames = []string{"quad.vert", "quad.frag", "mesh.vert", "mesh.frag"}

// Compiles the GLSL sources under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, name := range shaderNames {
		src := fmt.Sprintf("assets/shaders/%s", name)
		dst := fmt.Sprintf("assets/shaders/%s.spv", name)
		if _, err := executeCmd("glslc", withArgs(src, "-o", dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the testbed game module as a c-shared library the engine can
// load and hot-reload.
func (Build) Game() error {
	out := "libgame.so"
	switch runtime.GOOS {
	case "darwin":
		out = "libgame.dylib"
	case "windows":
		out = "game.dll"
	}
	_, err := executeCmd("go",
		withArgs("build", "-buildmode=c-shared", "-o", out, "."),
		withDir("testbed"), withStream())
	return err
}

// Builds shaders, the game module and the engine binary.
func (Build) All() error {
	mg.SerialDeps(Build.Shaders, Build.Game)
	_, err := executeCmd("go", withArgs("build", "-o", "reverie", "."), withStream())
	return err
}
