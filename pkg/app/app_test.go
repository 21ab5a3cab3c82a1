package app

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/tpm2"
)

func TestAppDefaults(t *testing.T) {

	app := NewApp()
	app.FS = afero.NewMemMapFs()
	app.Init(&AppInitParams{Debug: true})

	assert.NotNil(t, app.Logger)
	assert.Equal(t, "sha256", app.TPMConfig.Hash)

	nameAlg, err := app.NameAlg()
	assert.Nil(t, err)
	assert.Equal(t, tpm2.SHA256, nameAlg)

	extender, err := app.Extender()
	assert.Nil(t, err)
	assert.Equal(t, uint32(24), extender.NumPCRs())
	assert.Equal(t, []tpm2.DigestAlgorithm{tpm2.SHA1, tpm2.SHA256},
		extender.Algorithms())
}

func TestAppLogFile(t *testing.T) {

	app := NewApp()
	app.FS = afero.NewMemMapFs()
	app.Init(&AppInitParams{Debug: true, LogDir: "/var/log/test"})

	app.Logger.Debug("logger writes to the configured file")

	exists, err := afero.Exists(app.FS, "/var/log/test/tpm-crypto.log")
	assert.Nil(t, err)
	assert.True(t, exists)
}
