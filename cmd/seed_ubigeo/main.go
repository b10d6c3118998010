// seed_ubigeo genera scripts SQL para poblar las tablas paramétricas de
// ubigeo (departamentos y distritos INEI) a partir del XML oficial Ubigeos.xml.
//
// Uso: go run ./cmd/seed_ubigeo [ruta/Ubigeos.xml]
// Por defecto busca Ubigeos.xml en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/007_seed_ubigeos.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type catalogo struct {
	Tabla struct {
		Valores []valor `xml:"valor"`
	} `xml:"tabla"`
}

type valor struct {
	Cod    string `xml:"cod,attr"`
	Nombre string `xml:"nombre,attr"`
}

func main() {
	xmlPath := "Ubigeos.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var cat catalogo
	dec := xml.NewDecoder(f)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&cat); err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	// El código ubigeo lleva departamento (2), provincia (2) y distrito (2).
	// Las entradas de 2 dígitos son departamentos; las de 6, distritos.
	deptMap := make(map[string]string)
	var districts []struct{ cod, nombre string }
	for _, v := range cat.Tabla.Valores {
		cod := strings.TrimSpace(v.Cod)
		nombre := strings.TrimSpace(v.Nombre)
		if cod == "" || nombre == "" {
			continue
		}
		switch len(cod) {
		case 2:
			deptMap[cod] = nombre
		case 6:
			districts = append(districts, struct{ cod, nombre string }{cod, nombre})
		}
	}

	// Ordenar departamentos por código para salida estable
	var deptCodes []string
	for c := range deptMap {
		deptCodes = append(deptCodes, c)
	}
	sort.Strings(deptCodes)

	// Ruta del script de salida (relativa al módulo)
	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "007_seed_ubigeos.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Departamentos y distritos del Perú (código ubigeo INEI)\n")
	out.WriteString("-- Generado desde Ubigeos.xml\n\n")

	out.WriteString("-- 1. Departamentos\n")
	out.WriteString("INSERT INTO ubigeo_departments (code, name) VALUES\n")
	for i, c := range deptCodes {
		name := escapeSQL(deptMap[c])
		if i < len(deptCodes)-1 {
			fmt.Fprintf(out, "  ('%s', '%s'),\n", c, name)
		} else {
			fmt.Fprintf(out, "  ('%s', '%s')\n", c, name)
		}
	}
	out.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n\n")

	out.WriteString("-- 2. Distritos (código ubigeo completo)\n")
	for _, d := range districts {
		name := escapeSQL(d.nombre)
		fmt.Fprintf(out, "INSERT INTO ubigeo_districts (code, department_code, name)\n")
		fmt.Fprintf(out, "VALUES ('%s', '%s', '%s')\n", d.cod, d.cod[:2], name)
		out.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n")
	}

	fmt.Printf("Generado %s: %d departamentos, %d distritos\n", outPath, len(deptCodes), len(districts))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
