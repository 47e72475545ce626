package command

const (
	msgWeatherPrefix   = "מזג האוויר: "
	msgTimeFmt         = "השעה עכשיו %s."
	msgCivilDateFmt    = "היום בתאריך %s."
	msgWeekdayFmt      = "היום יום %s."
	msgHebrewDateFmt   = "היום בלוח השנה העברי: %s."
	msgOpeningFmt      = "פותחת %s."
	msgCamera          = "לא ניתן לפתוח מצלמה ישירות כאפליקציה מהדפדפן, אבל אפשר לבקש גישה למצלמה מתוך אתר מתאים."
	msgVolume          = "אני לא יכולה לשלוט בווליום של המכשיר, נסה להשתמש בכפתורי הווליום."
	msgMuted           = "עברתי למצב שקט. לא אדבר בקול, רק טקסט."
	msgUnmuted         = "מצב השקט בוטל. אחזור לדבר בקול."
	msgTimerSetFmt     = "הפעלתי טיימר ל־%d דקות."
	msgTimerAskMinutes = "כמה דקות להגדיר לטיימר?"
	msgTimerCancelled  = "הטיימר בוטל."
	msgNoTimer         = "אין טיימר פעיל."
	msgRemainingFmt    = "נשארו %d דקות ו־%d שניות."
)
