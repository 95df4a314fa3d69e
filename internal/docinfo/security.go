package docinfo

// Security lists what a viewer is allowed to do with a document
type Security struct {
	Encrypted   bool `json:"encrypted"`
	Print       bool `json:"print"`
	Modify      bool `json:"modify"`
	Copy        bool `json:"copy"`
	Annotate    bool `json:"annotate"`
	FillForms   bool `json:"fillForms"`
	Extract     bool `json:"extractForAccessibility"`
	Assemble    bool `json:"assemble"`
	PrintHighQ  bool `json:"printHighQuality"`
	Permissions int  `json:"permissions"`
}

// user access permission bits (P entry of the encryption dictionary)
const (
	permPrint     = 1 << 2
	permModify    = 1 << 3
	permCopy      = 1 << 4
	permAnnotate  = 1 << 5
	permFillForms = 1 << 8
	permExtract   = 1 << 9
	permAssemble  = 1 << 10
	permPrintHigh = 1 << 11
)

// SecurityFromPermissions decodes the P value of the standard security handler.
// Unencrypted documents allow everything.
func SecurityFromPermissions(encrypted bool, p int) Security {
	if !encrypted {
		return Security{
			Print:      true,
			Modify:     true,
			Copy:       true,
			Annotate:   true,
			FillForms:  true,
			Extract:    true,
			Assemble:   true,
			PrintHighQ: true,
		}
	}
	return Security{
		Encrypted:   true,
		Print:       p&permPrint != 0,
		Modify:      p&permModify != 0,
		Copy:        p&permCopy != 0,
		Annotate:    p&permAnnotate != 0,
		FillForms:   p&permFillForms != 0,
		Extract:     p&permExtract != 0,
		Assemble:    p&permAssemble != 0,
		PrintHighQ:  p&permPrintHigh != 0,
		Permissions: p,
	}
}
