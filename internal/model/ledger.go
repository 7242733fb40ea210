package model

import "time"

// Transaction records a completed credit purchase.
type Transaction struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	BuyerCompany  string    `json:"buyer_company"`
	AmountPaidMXN float64   `json:"amount_paid"`
	Hash          string    `json:"transaction_hash"`
	CreatedAt     time.Time `json:"timestamp"`
}

// CertificateStatus represents the attestation state of an issued certificate.
type CertificateStatus string

const (
	CertificateIssued    CertificateStatus = "Emitido"
	CertificateValidated CertificateStatus = "Validado"
)

// Certificate attests a company's purchased water offset for a period.
type Certificate struct {
	ID            string            `json:"id"`
	Folio         string            `json:"folio"`
	ProjectID     string            `json:"project_id"`
	Company       string            `json:"company"`
	WaterOffsetM3 float64           `json:"water_offset_m3"`
	CO2OffsetTons float64           `json:"co2_offset_tons"`
	Status        CertificateStatus `json:"status"`
	Hash          string            `json:"hash"`
	Period        string            `json:"period"`
	IssuedAt      time.Time         `json:"issued_at"`
}
