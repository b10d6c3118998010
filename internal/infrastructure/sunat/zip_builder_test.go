package sunat_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

func TestCompressXMLToZip_IdaYVuelta(t *testing.T) {
	contenido := []byte(`<?xml version="1.0" encoding="UTF-8"?><Invoice/>`)

	zipBytes, err := sunat.CompressXMLToZip(contenido, "20600055519-01-F001-00000001.xml")
	require.NoError(t, err)
	require.NotEmpty(t, zipBytes)

	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)

	// SUNAT exige un único XML dentro del ZIP, con el mismo nombre base
	require.Len(t, zr.File, 1)
	assert.Equal(t, "20600055519-01-F001-00000001.xml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	leido, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, contenido, leido)
}

func TestSUNATFilenames(t *testing.T) {
	doc := &entity.Document{
		DocType:  pkgsunat.DocTypeFactura,
		Series:   "F001",
		Sequence: 1,
	}

	xmlName, zipName := sunat.SUNATFilenames(rucEmisor, doc)

	assert.Equal(t, "20600055519-01-F001-00000001.xml", xmlName)
	assert.Equal(t, "20600055519-01-F001-00000001.zip", zipName)
}

func TestSUNATFilenames_NotaCredito(t *testing.T) {
	doc := &entity.Document{
		DocType:  pkgsunat.DocTypeNotaCredito,
		Series:   "FC01",
		Sequence: 123,
	}

	xmlName, zipName := sunat.SUNATFilenames(rucEmisor, doc)

	assert.Equal(t, "20600055519-07-FC01-00000123.xml", xmlName)
	assert.Equal(t, "20600055519-07-FC01-00000123.zip", zipName)
}
