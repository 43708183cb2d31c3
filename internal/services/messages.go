package services

import (
	"fmt"
	"html"
	"time"
)

// User-facing texts. Replies are sent with HTML parse mode.
const (
	textGenericError   = "Ошибка при обработке запроса. Попробуйте позже."
	textFetchFailed    = "Ошибка загрузки файла"
	textUnavailable    = "Window sticker недоступен для данного VIN"
	textPhotosButton   = "Получить фотографии битка"
	textPhotosLoading  = "Загружаю фотографии..."
	textPhotosDisabled = "Фотографии недоступны"

	callbackPhotosPrefix = "photos:"
)

func limitReachedText(max int, wait time.Duration) string {
	return fmt.Sprintf(
		"Достигнут дневной лимит запросов (<b>%d</b>). Следующий запрос будет доступен через <b>%s</b>",
		max, clock(wait),
	)
}

func captionText(vin string, remaining int) string {
	return fmt.Sprintf("Window sticker for VIN: <b>%s</b>\nОсталось запросов сегодня: <b>%d</b>", html.EscapeString(vin), remaining)
}

func linkText(username string, messageID int) string {
	return fmt.Sprintf("Ссылка на сообщение с pdf:\nhttps://t.me/%s/%d", username, messageID)
}

func deliveryErrorText(err error) string {
	return "Произошла ошибка при отправке pdf: " + html.EscapeString(err.Error())
}

func greetingText(max int) string {
	return fmt.Sprintf("Бот активирован в этой группе\nЛимит запросов на пользователя: <b>%d</b> в сутки", max)
}

func noPhotosText(vin string) string {
	return fmt.Sprintf("Фотографии для VIN <b>%s</b> не найдены", html.EscapeString(vin))
}

// clock formats d as HH:MM:SS, rounding up to the next second.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
