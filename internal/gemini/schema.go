package gemini

// BuildTrafficFineJSONSchema returns the response schema for a French
// traffic fine notice as a generic map. It is sent to the extraction
// service as a structured-output constraint and reused locally to
// validate what comes back.
func BuildTrafficFineJSONSchema() map[string]any {
	return object(map[string]any{
		"document_type": stringProp("Type of document"),
		"fine_identifiers": object(map[string]any{
			"fine_number":       stringProp("Notice number printed on the fine"),
			"barcode_reference": stringProp("Technical reference or barcode"),
			"qr_code_present":   boolProp("Whether a QR code appears on the document"),
		}, "fine_number", "qr_code_present"),
		"issuing_authority": object(map[string]any{
			"country":        stringProp("Issuing country"),
			"authority_name": stringProp("Authority that issued the notice"),
			"website":        stringProp("Official site for payment or contestation"),
			"contact_phone":  stringProp("Administration contact number"),
		}, "country", "authority_name", "website"),
		"notice_dates": object(map[string]any{
			"notice_issue_date": stringProp("Date the notice was issued"),
			"infraction_date":   stringProp("Date the infraction was recorded"),
			"infraction_time":   stringProp("Time the infraction was recorded"),
		}, "notice_issue_date", "infraction_date", "infraction_time"),
		"offender": object(map[string]any{
			"full_name": stringProp("Full name of the registration certificate holder"),
			"address": object(map[string]any{
				"street":      stringProp("Postal address"),
				"postal_code": stringProp("Postal code"),
				"city":        stringProp("City"),
				"country":     stringProp("Country of residence"),
			}, "street", "postal_code", "city"),
		}, "full_name", "address"),
		"vehicle": object(map[string]any{
			"license_plate":           stringProp("Vehicle registration number"),
			"country_of_registration": stringProp("Country of registration"),
			"brand":                   stringProp("Vehicle brand"),
			"vehicle_owner_role":      stringProp("Offender's relationship to the vehicle"),
		}, "license_plate", "country_of_registration", "brand"),
		"infraction": object(map[string]any{
			"infraction_category":    stringProp("General category of the infraction"),
			"infraction_description": stringProp("Detailed description of the infraction"),
			"legal_references": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Law articles and legal references",
			},
			"infraction_code": stringProp("Internal infraction code"),
		}, "infraction_category", "infraction_description", "legal_references"),
		"location": object(map[string]any{
			"street_name":     stringProp("Exact place of the infraction"),
			"city":            stringProp("City where the infraction was recorded"),
			"department_code": stringProp("Department code"),
			"country":         stringProp("Country of the infraction"),
		}, "street_name", "city", "department_code", "country"),
		"enforcement": object(map[string]any{
			"reporting_officer_id": stringProp("Reporting officer number"),
			"service_code":         stringProp("Reporting service code"),
			"enforcement_agency":   stringProp("Enforcement agency"),
		}, "reporting_officer_id", "service_code"),
		"penalty": object(map[string]any{
			"fine_type":             stringProp("Fine type"),
			"base_amount_eur":       numberProp("Flat-rate fine amount in euros"),
			"increased_amount_eur":  numberProp("Increased fine amount in euros"),
			"payment_deadline_days": numberProp("Days to pay before the increase applies"),
			"points_removed":        numberProp("License points removed"),
		}, "fine_type", "base_amount_eur", "increased_amount_eur", "payment_deadline_days", "points_removed"),
		"payment_and_contestation": object(map[string]any{
			"payment_required_for_admission":   boolProp("Payment counts as admission of the infraction"),
			"payment_website":                  stringProp("Official payment site"),
			"contestation_website":             stringProp("Official contestation site"),
			"contestation_requires_no_payment": boolProp("Contestation must be filed without paying first"),
			"contestation_address": object(map[string]any{
				"recipient":   stringProp("Contestation recipient"),
				"street":      stringProp("Contestation postal address"),
				"postal_code": stringProp("Postal code"),
				"city":        stringProp("City"),
			}, "recipient", "street", "postal_code", "city"),
		}, "payment_required_for_admission", "payment_website", "contestation_website", "contestation_requires_no_payment", "contestation_address"),
		"postal_information": object(map[string]any{
			"delivery_service":   stringProp("Mail delivery service"),
			"postal_center_code": stringProp("Postal center code"),
		}, "delivery_service"),
		"data_protection": object(map[string]any{
			"personal_data_processing": boolProp("Whether personal data is processed"),
			"data_retention_years":     numberProp("Data retention period in years"),
			"data_controller":          stringProp("Data controller"),
		}, "personal_data_processing"),
	},
		"document_type", "fine_identifiers", "issuing_authority", "notice_dates",
		"offender", "vehicle", "infraction", "location", "enforcement", "penalty",
		"payment_and_contestation", "postal_information", "data_protection",
	)
}

func object(props map[string]any, required ...string) map[string]any {
	o := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		o["required"] = required
	}
	return o
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}
