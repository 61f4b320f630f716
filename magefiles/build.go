//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/ember", "."), withStream())
	return err
}

func buildShaders() error {
	var sources []string
	for _, ext := range []string{".vert", ".frag", ".geom"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, "*"+ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	for _, src := range sources {
		// builtin.world.vert -> builtin.world.vert.spv
		out := src + ".spv"
		if upToDate(src, out) {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func upToDate(src, out string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	oi, err := os.Stat(out)
	if err != nil {
		return false
	}
	return oi.ModTime().After(si.ModTime())
}
