package notifier

const (
	btnClaim          = "✅ Взять"
	btnRelease        = "❌ Отказаться"
	btnOpenSite       = "Открыть на сайте"
	btnTaken          = "Занят"
	btnSharePhone     = "📱 Отправить номер"
	textBound         = "✅ Канал привязан. Новые заказы будут публиковаться здесь."
	textHelp          = "Команды:\n/start — регистрация и отправка номера\n/bind_drivers_channel — привязать канал (в канале)."
	textPhoneSaved    = "✅ Номер сохранён. Ждите заказы."
	textReady         = "👋 Готов принимать заказы.\nЖдите публикации в канале и нажимайте «Взять»."
	textAskPhone      = "👋 Для продолжения отправьте свой номер телефона кнопкой ниже."
	textClientPhone   = "Телефон клиента: "
	textTakenBy       = "Занял "
	textNewOrderTitle = "🆕 Заказ #"
)

// Acknowledgements shown on the pressed button.
const (
	AckClaimed  = "Заказ ваш!"
	AckTaken    = "Увы, заказ уже занят"
	AckReleased = "Освободили"
	AckNotFound = "Заказ не найден"
)
