package resources

import _ "embed"

//go:embed head.html
var StatusPageHead string

//go:embed service.html
var StatusPageService string

//go:embed footer.html
var StatusPageFooter string

//go:embed script.js
var StatusPageScript string
