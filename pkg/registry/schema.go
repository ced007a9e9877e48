package registry

// Schema defines the SQLite schema for certified component records.
// Component status is an integer enum and may only move forward
// (manufactured -> certified -> used); the repository enforces this
// in its update paths.
const Schema = `
CREATE TABLE IF NOT EXISTS components (
    id TEXT PRIMARY KEY,
    component_type TEXT NOT NULL,
    serial_number TEXT NOT NULL,
    status INTEGER NOT NULL CHECK(status IN (0, 1, 2)),
    manufacturer_address TEXT,
    image TEXT,
    location TEXT,
    recorded_at TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_components_status ON components(status);
CREATE INDEX IF NOT EXISTS idx_components_created_at ON components(created_at);
`

// Status values for a component's lifecycle.
const (
	StatusManufactured = 0
	StatusCertified    = 1
	StatusUsed         = 2
)

// StatusName returns a human-readable label for a status value.
func StatusName(status int) string {
	switch status {
	case StatusManufactured:
		return "manufactured"
	case StatusCertified:
		return "certified"
	case StatusUsed:
		return "used"
	default:
		return "unknown"
	}
}

// Component represents one certified physical part record.
type Component struct {
	ID                  string
	Type                string
	SerialNumber        string
	Status              int
	ManufacturerAddress string
	Image               string
	Location            string
	RecordedAt          string
	CreatedAt           string
	UpdatedAt           string
}
