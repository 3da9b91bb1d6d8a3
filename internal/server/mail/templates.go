package mail

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type templateData struct {
	Username string
	Link     string
	TTL      string
}

var verifyHTML = htmltemplate.Must(htmltemplate.New("verify").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<p>Hi {{.Username}},</p>
<p>Please confirm your e-mail address for MediaVault:</p>
<p><a href="{{.Link}}">Verify e-mail</a></p>
<p>The link is valid for {{.TTL}}.</p>
</body></html>`))

var verifyText = texttemplate.Must(texttemplate.New("verify").Parse(`Hi {{.Username}},

Please confirm your e-mail address for MediaVault:
{{.Link}}

The link is valid for {{.TTL}}.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<p>Hi {{.Username}},</p>
<p>Someone asked to reset the password of your MediaVault account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link is valid for {{.TTL}}. If this was not you, ignore this message.</p>
</body></html>`))

var resetText = texttemplate.Must(texttemplate.New("reset").Parse(`Hi {{.Username}},

Someone asked to reset the password of your MediaVault account.
Choose a new password here:
{{.Link}}

The link is valid for {{.TTL}}. If this was not you, ignore this message.
`))


func render(html *htmltemplate.Template, text *texttemplate.Template, data templateData) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
