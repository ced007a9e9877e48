package saga

// AssembleRequest is the FSM input
type AssembleRequest struct {
	WatchID          string
	Location         string
	Timestamp        string
	AssemblerAddress string
}

// AssembleResult is the FSM output (accumulated across transitions)
type AssembleResult struct {
	// From UploadImage
	ImageRef string

	// From GenerateMetadata
	MetadataURI string
	ImageURI    string

	// From CommitOnChain
	TransactionHash string
	TokenID         int64
	TokenIDApprox   bool

	// From Complete
	VerificationCode string
	Status           string
	ErrorMessage     string
}

// State names
const (
	StateCheckSession     = "check_session"
	StateUploadImage      = "upload_image"
	StateGenerateMetadata = "generate_metadata"
	StateCommitOnChain    = "commit_onchain"
	StateComplete         = "complete"
	StateFailed           = "failed"
)

// Status values reported on the result
const (
	StatusCompleted = "completed"
)
