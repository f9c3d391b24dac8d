// Package estatement downloads monthly e-statements from the KlikBCA
// internet banking portal by driving Chrome through the DevTools Protocol.
//
// # Downloading
//
// A [Downloader] runs one browser session: it logs in, walks the work list
// of previous months, downloads one statement per month and logs out.
//
//	d, err := estatement.New("0123456789", "budi1234", "123456",
//	    estatement.WithDir("~/statements"),
//	    estatement.WithMaxDownloads(6),
//	    estatement.WithHeadless(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	arts, err := d.Run(ctx)
//	if err != nil {
//	    fmt.Println(estatement.FormatFailure(err))
//	    os.Exit(1)
//	}
//
// The run stops at the first failure. Logout and browser shutdown still
// happen, and their own errors never replace the first one. A native
// dialog opened by the portal at any point is treated as a failure.
//
// # Work list
//
// [Window] and [WorkList] compute the months to fetch, most recent first,
// never more than 24 months back:
//
//	estatement.Window(3, 2024, 5) // 2/2024 1/2024 12/2023 11/2023 10/2023
//
// # Text conversion
//
// Statements can be converted to text as they arrive, either with an
// external pdftotext ([NewExecConverter]) or in-process
// ([BuiltinConverter]):
//
//	conv, err := estatement.NewExecConverter("pdftotext")
//	if err == nil {
//	    opts = append(opts, estatement.WithConverter(conv))
//	}
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
package estatement
