package components

// Location is a site's cell in the landscape raster.
type Location struct {
	ID  int // row-major cell index
	Row int
	Col int
}
