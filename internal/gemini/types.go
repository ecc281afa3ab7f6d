package gemini

// TrafficFine is the structured result the extraction service returns
// for a French traffic fine notice ("avis de contravention"). Optional
// groups and fields are pointers so absence survives the JSON round-trip.
type TrafficFine struct {
	DocumentType           string                  `json:"document_type"`
	FineIdentifiers        *FineIdentifiers        `json:"fine_identifiers,omitempty"`
	IssuingAuthority       *IssuingAuthority       `json:"issuing_authority,omitempty"`
	NoticeDates            *NoticeDates            `json:"notice_dates,omitempty"`
	Offender               *Offender               `json:"offender,omitempty"`
	Vehicle                *Vehicle                `json:"vehicle,omitempty"`
	Infraction             *Infraction             `json:"infraction,omitempty"`
	Location               *Location               `json:"location,omitempty"`
	Enforcement            *Enforcement            `json:"enforcement,omitempty"`
	Penalty                *Penalty                `json:"penalty,omitempty"`
	PaymentAndContestation *PaymentAndContestation `json:"payment_and_contestation,omitempty"`
	PostalInformation      *PostalInformation      `json:"postal_information,omitempty"`
	DataProtection         *DataProtection         `json:"data_protection,omitempty"`
}

type FineIdentifiers struct {
	FineNumber       string `json:"fine_number"`
	BarcodeReference string `json:"barcode_reference,omitempty"`
	QRCodePresent    bool   `json:"qr_code_present"`
}

type IssuingAuthority struct {
	Country       string `json:"country"`
	AuthorityName string `json:"authority_name"`
	Website       string `json:"website"`
	ContactPhone  string `json:"contact_phone,omitempty"`
}

type NoticeDates struct {
	NoticeIssueDate string `json:"notice_issue_date"`
	InfractionDate  string `json:"infraction_date"`
	InfractionTime  string `json:"infraction_time"`
}

type Offender struct {
	FullName string          `json:"full_name"`
	Address  OffenderAddress `json:"address"`
}

type OffenderAddress struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country,omitempty"`
}

type Vehicle struct {
	LicensePlate          string `json:"license_plate"`
	CountryOfRegistration string `json:"country_of_registration"`
	Brand                 string `json:"brand"`
	VehicleOwnerRole      string `json:"vehicle_owner_role,omitempty"`
}

type Infraction struct {
	InfractionCategory    string   `json:"infraction_category"`
	InfractionDescription string   `json:"infraction_description"`
	LegalReferences       []string `json:"legal_references"`
	InfractionCode        string   `json:"infraction_code,omitempty"`
}

type Location struct {
	StreetName     string `json:"street_name"`
	City           string `json:"city"`
	DepartmentCode string `json:"department_code"`
	Country        string `json:"country"`
}

type Enforcement struct {
	ReportingOfficerID string `json:"reporting_officer_id"`
	ServiceCode        string `json:"service_code"`
	EnforcementAgency  string `json:"enforcement_agency,omitempty"`
}

type Penalty struct {
	FineType            string   `json:"fine_type"`
	BaseAmountEUR       *float64 `json:"base_amount_eur"`
	IncreasedAmountEUR  *float64 `json:"increased_amount_eur"`
	PaymentDeadlineDays *int     `json:"payment_deadline_days"`
	PointsRemoved       *int     `json:"points_removed"`
}

type PaymentAndContestation struct {
	PaymentRequiredForAdmission  bool                `json:"payment_required_for_admission"`
	PaymentWebsite               string              `json:"payment_website"`
	ContestationWebsite          string              `json:"contestation_website"`
	ContestationRequiresNoPay    bool                `json:"contestation_requires_no_payment"`
	ContestationAddress          ContestationAddress `json:"contestation_address"`
}

type ContestationAddress struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

type PostalInformation struct {
	DeliveryService  string `json:"delivery_service"`
	PostalCenterCode string `json:"postal_center_code,omitempty"`
}

type DataProtection struct {
	PersonalDataProcessing bool   `json:"personal_data_processing"`
	DataRetentionYears     *int   `json:"data_retention_years,omitempty"`
	DataController         string `json:"data_controller,omitempty"`
}
