package model

// Note is a free-form text note. Stored as notes/{tenant}/{id}.json.
type Note struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	CreatedAt *string `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// NoteSummary is a list view entry of a note.
type NoteSummary struct {
	ID           string  `json:"id"`
	Key          string  `json:"key"`
	Title        string  `json:"title"`
	Size         int64   `json:"size"`
	CreatedAt    *string `json:"createdAt"`
	UpdatedAt    *string `json:"updatedAt"`
	LastModified *string `json:"lastModified"`
}

// Contact is one entry of a tenant's contact book.
type Contact struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	PrivateNotes string `json:"privateNotes"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// ContactsKind tags the stored contacts document schema.
const ContactsKind = "contacts_v1"

// ContactsDoc is the single contacts document of a tenant, stored as
// contacts/{tenant}/contacts.json.
type ContactsDoc struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId,omitempty"`
	Contacts  []Contact `json:"contacts"`
	UpdatedAt *string   `json:"updatedAt"`
}

// ProjectionKind tags the stored projection document schema.
const ProjectionKind = "compound_interest_v1"

// ProjectionInputs are the calculator inputs of a compound-interest projection.
type ProjectionInputs struct {
	InitialDeposit      float64 `json:"initialDeposit"`
	MonthlyContribution float64 `json:"monthlyContribution"`
	AnnualRatePct       float64 `json:"annualRatePct"`
	Years               float64 `json:"years"`
}

// ProjectionResults are the headline numbers of a projection.
type ProjectionResults struct {
	TotalBalance   float64 `json:"totalBalance"`
	TotalPrincipal float64 `json:"totalPrincipal"`
	TotalInterest  float64 `json:"totalInterest"`
}

// ProjectionPoint is one month of a projection series.
type ProjectionPoint struct {
	Month     int     `json:"month"`
	Balance   float64 `json:"balance"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
}

// Projection is a saved savings calculation, stored as projections/{tenant}/{id}.json.
type Projection struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId,omitempty"`
	Kind      string             `json:"kind"`
	Inputs    *ProjectionInputs  `json:"inputs"`
	Results   *ProjectionResults `json:"results"`
	Series    []ProjectionPoint  `json:"series"`
	CreatedAt string             `json:"createdAt"`
	UpdatedAt string             `json:"updatedAt"`
}

// TourVersion is the onboarding tour version a tenant must have completed to count as seen.
const TourVersion = 1

// TourState is the stored onboarding document, onboarding/{tenant}/welcome-tour.json.
type TourState struct {
	UserID      string  `json:"userId,omitempty"`
	Version     int     `json:"version"`
	Action      string  `json:"action,omitempty"`
	CompletedAt *string `json:"completedAt"`
}

// TourStatus is the onboarding state reported to clients.
type TourStatus struct {
	Seen            bool    `json:"seen"`
	Version         int     `json:"version"`
	RequiredVersion int     `json:"requiredVersion"`
	CompletedAt     *string `json:"completedAt"`
}
