package pfsense

import (
	"bytes"
	"io"
	"mime/multipart"
)

// formField is one multipart part. File parts are sent as application/octet-stream.
type formField struct {
	name     string
	value    string
	file     bool
	filename string
	content  io.Reader
}

func textField(name, value string) formField {
	return formField{name: name, value: value}
}

func fileField(name, filename string, content io.Reader) formField {
	return formField{name: name, file: true, filename: filename, content: content}
}

// encodeForm writes the fields in order. pfSense reads the submit button fields
// positionally, so ordering matters.
func encodeForm(fields []formField) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, field := range fields {
		if !field.file {
			if err := writer.WriteField(field.name, field.value); err != nil {
				return nil, "", err
			}
			continue
		}

		part, err := writer.CreateFormFile(field.name, field.filename)
		if err != nil {
			return nil, "", err
		}
		if field.content != nil {
			if _, err := io.Copy(part, field.content); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func loginForm(csrfToken, username, password string) []formField {
	return []formField{
		textField(csrfFieldName, csrfToken),
		textField("usernamefld", username),
		textField("passwordfld", password),
		textField("login", "Sign+In"),
	}
}

func downloadForm(csrfToken, encryptPassword string) []formField {
	return []formField{
		textField(csrfFieldName, csrfToken),
		textField("backuparea", ""),
		textField("donotbackuprrd", "yes"),
		textField("backupdata", "yes"),
		textField("encrypt", "yes"),
		textField("encrypt_password", encryptPassword),
		textField("encrypt_password_confirm", encryptPassword),
		textField("download", "Download configuration as XML"),
		textField("restorearea", ""),
		fileField("conffile", "", nil),
		textField("decrypt_password", ""),
	}
}

func restoreForm(csrfToken, filename string, content io.Reader, decryptPassword string) []formField {
	return []formField{
		textField(csrfFieldName, csrfToken),
		textField("backuparea", ""),
		textField("donotbackuprrd", "yes"),
		textField("encrypt_password", ""),
		textField("encrypt_password_confirm", ""),
		textField("restorearea", ""),
		fileField("conffile", filename, content),
		textField("decrypt", "yes"),
		textField("decrypt_password", decryptPassword),
		textField("restore", "Restore Configuration"),
	}
}
