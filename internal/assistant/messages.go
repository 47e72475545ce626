package assistant

const (
	msgListening       = "התחלתי להקשיב."
	msgStopped         = "הפסקתי להקשיב."
	msgMicPermission   = "חובה לאשר גישה למיקרופון."
	msgNoRecognition   = "הדפדפן שלך לא תומך בזיהוי דיבור."
	msgHeardPrefix     = "שמעתי: "
	msgThinking        = "חושבת..."
	msgFarewellShown   = "להתראות 👋"
	msgFarewellSpoken  = "להתראות, אני כאן אם תצטרך."
	msgTimerDoneShown  = "⏰ הטיימר הסתיים."
	msgTimerDone       = "הטיימר הסתיים."
	msgMemoryCleared   = "הזיכרון הארוך נוקה."
	msgContactsShown   = "סונכרנו אנשי קשר."
	msgContactsSpoken  = "סנכרנתי את אנשי הקשר שלך."
	msgContactsMissing = "אין תמיכה בסנכרון אנשי קשר בדפדפן זה."
	msgContactsDenied  = "לא ניתנה גישה לאנשי קשר."
	msgContactsNoPerm  = "לא קיבלתי גישה לאנשי הקשר."
)
