package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const pointManifest = `
types:
  - name: Point
    members:
      - {name: x, type: int}
      - {name: y, type: double}
      - {name: tags, type: vector<short>}
`

func writeFixtures(t *testing.T) (manifestPath, imagePath string) {
	dir := t.TempDir()
	manifestPath = filepath.Join(dir, "point.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(pointManifest), 0644))

	img := make([]byte, 32)
	x := int32(-4)
	binary.LittleEndian.PutUint32(img[0:], uint32(x))
	binary.LittleEndian.PutUint64(img[8:], math.Float64bits(2.25))
	imagePath = filepath.Join(dir, "point.bin")
	require.NoError(t, os.WriteFile(imagePath, img, 0644))
	return
}

func TestRun_Get(t *testing.T) {
	m, img := writeFixtures(t)
	var out bytes.Buffer
	err := run(&options{Manifest: []string{m}, Type: "Point", Image: img, Get: []string{"x", "y"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "-4\n2.25\n", out.String())
}

func TestRun_ListTypes(t *testing.T) {
	m, _ := writeFixtures(t)
	var out bytes.Buffer
	require.NoError(t, run(&options{Manifest: []string{m}}, &out))
	assert.Equal(t, "Point\n", out.String())
}

func TestRun_Snapshot(t *testing.T) {
	m, img := writeFixtures(t)
	var out bytes.Buffer
	require.NoError(t, run(&options{Manifest: []string{m}, Type: "Point", Image: img, Prefix: "p", Snapshot: true}, &out))

	var samples []sample
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &samples))
	assert.Equal(t, []sample{
		{Name: "p.x", Type: "int32", Value: -4},
		{Name: "p.y", Type: "float64", Value: 2.25},
	}, samples)
}

func TestRun_List(t *testing.T) {
	m, img := writeFixtures(t)
	var out bytes.Buffer
	require.NoError(t, run(&options{Manifest: []string{m}, Type: "Point", Image: img, List: true}, &out))
	assert.Contains(t, out.String(), "y")
	assert.Contains(t, out.String(), "2.25 [float64]")
}

func TestRun_Export(t *testing.T) {
	m, _ := writeFixtures(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, run(&options{Manifest: []string{m}, Type: "Point", Export: path}, new(bytes.Buffer)))

	var out bytes.Buffer
	require.NoError(t, run(&options{Manifest: []string{path}, Type: "Point", Complete: "t"}, &out))
	assert.Equal(t, "", strings.TrimSpace(out.String()))
}

func TestRun_Errors(t *testing.T) {
	m, img := writeFixtures(t)
	var out bytes.Buffer
	assert.Error(t, run(&options{Manifest: []string{m}, Type: "Nope"}, &out))
	assert.Error(t, run(&options{Manifest: []string{m}, Type: "Point", Image: img, Get: []string{"z"}}, &out))
	assert.Error(t, run(&options{Manifest: []string{m}, Type: "Point", Image: img, Base: 30}, &out))
	assert.Error(t, run(&options{Manifest: []string{"missing.yaml"}}, &out))
}
