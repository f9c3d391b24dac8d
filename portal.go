package estatement

// Portal describes the remote banking site: where to go and which controls
// to drive.
type Portal struct {
	LoginURL     string
	StatementURL string

	UsernameField string
	PasswordField string
	LoginButton   string

	// AccountSelectID is the element id of the account <select>; options
	// are matched by their text.
	AccountSelectID string
	MonthSelect     string
	YearSelect      string
	DownloadButton  string

	LogoutText string
}

// DefaultPortal returns the KlikBCA internet banking endpoints.
func DefaultPortal() Portal {
	return Portal{
		LoginURL:     "https://ibank.klikbca.com/authentication.do",
		StatementURL: "https://ibank.klikbca.com/estatement.do?value(actions)=estmt",

		UsernameField: "#user_id",
		PasswordField: "#pswd",
		LoginButton:   `input[name="value(Submit)"]`,

		AccountSelectID: "A1",
		MonthSelect:     "#monthVal",
		YearSelect:      "#yearVal",
		DownloadButton:  `input[name="value(submit)"]`,

		LogoutText: "[ LOGOUT ]",
	}
}

func (p Portal) accountSelect() string {
	return "#" + p.AccountSelectID
}
