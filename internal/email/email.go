package emails

type Attachment struct {
	Filename string
	Content  []byte
}

type Email struct {
	From        string
	To          []string
	Subject     string
	HtmlBody    string
	Attachments []Attachment
}
