package tzraster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"zombiezen.com/go/sqlite"
)

func openGeoPackage(ctx context.Context, bucketURL string, key string, field string) (*Layer, error) {
	local, cleanup, err := fetchLocal(ctx, bucketURL, key)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	conn, err := sqlite.OpenConn(local, sqlite.OpenReadOnly)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	table, geomColumn, err := gpkgFeatureTable(conn)
	if err != nil {
		return nil, err
	}

	columns, err := tableColumns(conn, table)
	if err != nil {
		return nil, err
	}
	attrColumn := ""
	for _, c := range columns {
		if c == field {
			attrColumn = c
			break
		}
		if attrColumn == "" && strings.EqualFold(c, field) {
			attrColumn = c
		}
	}
	if attrColumn == "" {
		return nil, missingField(field)
	}

	layer := newLayer(key, "GeoPackage", field)
	stmt, _, err := conn.PrepareTransient(fmt.Sprintf("SELECT %s, %s FROM %s", quoteIdent(geomColumn), quoteIdent(attrColumn), quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer stmt.Finalize()

	var buf []byte
	for row := 0; ; row++ {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		if stmt.ColumnType(1) != sqlite.TypeText {
			return nil, fmt.Errorf("row %d: %q is not a text value", row, attrColumn)
		}
		tzid := stmt.ColumnText(1)
		if stmt.ColumnType(0) == sqlite.TypeNull {
			layer.Skipped++
			continue
		}
		n := stmt.ColumnLen(0)
		if cap(buf) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		stmt.ColumnBytes(0, buf)

		g, err := decodeGeoPackageGeometry(buf)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		layer.addFeature(tzid, g)
	}
	return layer, nil
}

// gpkgFeatureTable returns the first feature table and its geometry column.
func gpkgFeatureTable(conn *sqlite.Conn) (string, string, error) {
	stmt, _, err := conn.PrepareTransient(`SELECT c.table_name, g.column_name
		FROM gpkg_contents c JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features' ORDER BY c.table_name LIMIT 1`)
	if err != nil {
		return "", "", fmt.Errorf("not a GeoPackage, %w", err)
	}
	defer stmt.Finalize()

	hasRow, err := stmt.Step()
	if err != nil {
		return "", "", err
	}
	if !hasRow {
		return "", "", errors.New("GeoPackage has no feature table")
	}
	return stmt.ColumnText(0), stmt.ColumnText(1), nil
}

func tableColumns(conn *sqlite.Conn, table string) ([]string, error) {
	stmt, _, err := conn.PrepareTransient(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer stmt.Finalize()

	columns := make([]string, 0)
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		columns = append(columns, stmt.GetText("name"))
	}
	return columns, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var gpkgEnvelopeBytes = [...]int{0, 32, 48, 48, 64}

// decodeGeoPackageGeometry strips the GeoPackage binary header and decodes
// the remaining WKB.
func decodeGeoPackageGeometry(b []byte) (orb.Geometry, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, errors.New("invalid GeoPackage geometry header")
	}
	flags := b[3]
	if flags&0x20 != 0 {
		return nil, errors.New("extended GeoPackage geometries are not supported")
	}
	envelope := int(flags>>1) & 0x07
	if envelope >= len(gpkgEnvelopeBytes) {
		return nil, fmt.Errorf("invalid GeoPackage envelope indicator %d", envelope)
	}
	if flags&0x10 != 0 {
		return nil, nil
	}
	start := 8 + gpkgEnvelopeBytes[envelope]
	if len(b) < start {
		return nil, errors.New("truncated GeoPackage geometry")
	}
	return wkb.Unmarshal(b[start:])
}
