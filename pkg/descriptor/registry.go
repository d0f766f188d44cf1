package descriptor

// Built-in descriptors for the ChEMBL web services. Endpoint paths, filter
// parameters, and envelope keys follow the /chembl/api/data surface.
var builtin = []Descriptor{
	{
		Name:              "activity",
		Endpoint:          "/activity.json",
		FilterParam:       "activity_id__in",
		ItemsKey:          "activities",
		IDField:           "activity_id",
		ChunkSizeCeiling:  500,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"activity_id", "assay_chembl_id", "molecule_chembl_id",
			"target_chembl_id", "document_chembl_id", "standard_type",
			"standard_relation", "standard_value", "standard_units",
			"pchembl_value",
		},
		OrderingFields: []string{"activity_id"},
		NumericFields:  []string{"standard_value", "pchembl_value"},
	},
	{
		Name:              "assay",
		Endpoint:          "/assay.json",
		FilterParam:       "assay_chembl_id__in",
		ItemsKey:          "assays",
		IDField:           "assay_chembl_id",
		ChunkSizeCeiling:  200,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"assay_chembl_id", "assay_type", "description",
			"assay_organism", "confidence_score", "document_chembl_id",
		},
		OrderingFields: []string{"assay_chembl_id"},
		NumericFields:  []string{"confidence_score"},
	},
	{
		Name:              "target",
		Endpoint:          "/target.json",
		FilterParam:       "target_chembl_id__in",
		ItemsKey:          "targets",
		IDField:           "target_chembl_id",
		ChunkSizeCeiling:  200,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"target_chembl_id", "pref_name", "target_type",
			"organism", "tax_id",
		},
		OrderingFields: []string{"target_chembl_id"},
		NumericFields:  []string{"tax_id"},
	},
	{
		Name:              "molecule",
		Endpoint:          "/molecule.json",
		FilterParam:       "molecule_chembl_id__in",
		ItemsKey:          "molecules",
		IDField:           "molecule_chembl_id",
		ChunkSizeCeiling:  200,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"molecule_chembl_id", "pref_name", "max_phase",
			"molecule_type", "first_approval",
		},
		OrderingFields: []string{"molecule_chembl_id"},
		NumericFields:  []string{"max_phase", "first_approval"},
	},
	{
		Name:              "document",
		Endpoint:          "/document.json",
		FilterParam:       "document_chembl_id__in",
		ItemsKey:          "documents",
		IDField:           "document_chembl_id",
		ChunkSizeCeiling:  200,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"document_chembl_id", "title", "journal", "year", "doi",
		},
		OrderingFields: []string{"document_chembl_id"},
		NumericFields:  []string{"year"},
	},
	{
		Name:              "compound_record",
		Endpoint:          "/compound_record.json",
		FilterParam:       "record_id__in",
		ItemsKey:          "compound_records",
		IDField:           "record_id",
		ChunkSizeCeiling:  500,
		MaxPageSize:       1000,
		URLLengthEnforced: true,
		DefaultFields: []string{
			"record_id", "molecule_chembl_id", "document_chembl_id",
			"compound_name", "compound_key",
		},
		OrderingFields: []string{"record_id"},
		NumericFields:  []string{},
	},
	{
		// Source is a small vocabulary lookup; the id list never
		// approaches the URL budget.
		Name:              "source",
		Endpoint:          "/source.json",
		FilterParam:       "src_id__in",
		ItemsKey:          "sources",
		IDField:           "src_id",
		ChunkSizeCeiling:  50,
		MaxPageSize:       200,
		URLLengthEnforced: false,
		DefaultFields: []string{
			"src_id", "src_short_name", "src_description",
		},
		OrderingFields: []string{"src_id"},
		NumericFields:  []string{},
	},
}

// Registry returns copies of all built-in entity descriptors.
func Registry() []Descriptor {
	out := make([]Descriptor, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup returns the built-in descriptor for the given entity name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range builtin {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
