package types

// Vendor identifies the applicant tracking system that owns a job's
// application form. The set is closed: new vendors are added here and
// given a filler in internal/fillers, never special-cased elsewhere.
type Vendor string

const (
	VendorGreenhouse      Vendor = "greenhouse"
	VendorLever           Vendor = "lever"
	VendorWorkday         Vendor = "workday"
	VendorAshby           Vendor = "ashby"
	VendorOracle          Vendor = "oracle"
	VendorADP             Vendor = "adp"
	VendorICIMS           Vendor = "icims"
	VendorTaleo           Vendor = "taleo"
	VendorJobvite         Vendor = "jobvite"
	VendorSmartRecruiters Vendor = "smartrecruiters"

	// VendorRedirector marks aggregator landing pages (BuiltIn and the
	// like) that need an apply-click before the real form appears.
	VendorRedirector Vendor = "redirector"

	// VendorCustom is a company-built form with no recognized platform
	// signature. Still actionable via the universal filler.
	VendorCustom Vendor = "custom"

	// VendorUnknown means classification has not been attempted yet.
	VendorUnknown Vendor = "unknown"
)

// Terminal reports whether a page classified with this vendor hosts the
// actual application form, as opposed to a landing page that needs
// another hop.
func (v Vendor) Terminal() bool {
	return v != VendorRedirector && v != VendorUnknown
}
