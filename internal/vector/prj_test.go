package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWKT(t *testing.T) {
	t.Run("ogc wkt with authority", func(t *testing.T) {
		crs := ParseWKT(utm47WKT)
		assert.Equal(t, 32647, crs.EPSG)
		assert.Equal(t, "WGS 84 / UTM zone 47N", crs.Name)
	})

	t.Run("esri wkt without authority", func(t *testing.T) {
		esri := `PROJCS["WGS_1984_UTM_Zone_47N",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],UNIT["Meter",1.0]]`
		crs := ParseWKT(esri)
		assert.Equal(t, 0, crs.EPSG)
		assert.Equal(t, "WGS_1984_UTM_Zone_47N", crs.Name)
		assert.False(t, crs.Known())
	})

	t.Run("geographic wkt", func(t *testing.T) {
		geog := `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`
		crs := ParseWKT(geog)
		assert.Equal(t, 4326, crs.EPSG)
		assert.Equal(t, "WGS 84", crs.Name)
	})

	t.Run("garbage", func(t *testing.T) {
		crs := ParseWKT("not wkt at all")
		assert.False(t, crs.Known())
		assert.Empty(t, crs.Name)
	})
}
