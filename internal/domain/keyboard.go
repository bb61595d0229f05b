package domain

// Button: инлайн-кнопка. Заполняется либо Data, либо URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard: инлайн-клавиатура, независимая от платформы.
type Keyboard struct {
	Rows [][]Button
}

// NewKeyboard собирает клавиатуру из рядов.
func NewKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

// Row собирает ряд кнопок.
func Row(buttons ...Button) []Button {
	return buttons
}

// DataButton создаёт кнопку с callback-данными.
func DataButton(text string, cb Callback) Button {
	return Button{Text: text, Data: cb.Encode()}
}

// URLButton создаёт кнопку-ссылку.
func URLButton(text, url string) Button {
	return Button{Text: text, URL: url}
}

// Find возвращает первую кнопку с указанными данными.
func (k *Keyboard) Find(data string) (Button, bool) {
	if k == nil {
		return Button{}, false
	}
	for _, row := range k.Rows {
		for _, b := range row {
			if b.Data == data {
				return b, true
			}
		}
	}
	return Button{}, false
}
