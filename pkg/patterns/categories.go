package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at package init.
// Input is expected to be normalized lowercase text.
// =============================================================================

// --- CONTACT INFORMATION EXCHANGE ---
func (r *Registry) registerContactExchangePatterns() {
	cat := CategoryContactExchange

	r.register("phone_number", `\b(?:\+?\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`, cat, 70, "Phone number")
	r.register("email_address", `\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`, cat, 60, "Email address")
	r.register("ask_phone", `\b(what'?s|whats|give me|send me|can i (get|have)) (your|ur) (number|phone)\b`, cat, 75, "Request for phone number")
	r.register("ask_address", `\b(where do you live|what'?s your address|which school do you go to)\b`, cat, 80, "Request for location or school")
	r.register("social_handle", `\b(my|your|ur) (snap(chat)?|insta(gram)?|discord|telegram|whatsapp|kik)( (is|name|handle|id))?\b`, cat, 55, "Social media handle exchange")
}

// --- MEETING ARRANGEMENT ---
func (r *Registry) registerMeetingPatterns() {
	cat := CategoryMeetingArrange

	r.register("meet_up", `\b(meet (up|me|irl)|in person|face to face)\b`, cat, 80, "In-person meeting suggestion")
	r.register("pick_up", `\b(pick you up|come (over|to your)|my (place|house))\b`, cat, 85, "Pickup or visit suggestion")
	r.register("alone_meeting", `\bwhen (are you|you'?re) (alone|home alone)\b`, cat, 90, "Meeting conditioned on being alone")
}

// --- SECRECY INDUCTION ---
func (r *Registry) registerSecrecyPatterns() {
	cat := CategorySecrecy

	r.register("dont_tell", `\b(don'?t|do not) tell (your|ur|any(one|body)|them)\b`, cat, 85, "Instruction to hide the conversation")
	r.register("our_secret", `\b(our|my|a) (little )?secret\b`, cat, 80, "Framing the relationship as secret")
	r.register("delete_chat", `\b(delete (this|the|our) (chat|messages?|convo)|clear (the|your) history)\b`, cat, 85, "Instruction to destroy evidence")
	r.register("parents_wont_understand", `\b(they|your parents) (wouldn'?t|won'?t|don'?t) understand\b`, cat, 70, "Isolating from parents")
}

// --- AGE PROBING ---
func (r *Registry) registerAgeProbingPatterns() {
	cat := CategoryAgeProbing

	r.register("ask_age", `\b(how old (are|r) (you|u)|what'?s your age|asl)\b`, cat, 60, "Direct age question")
	r.register("ask_grade", `\b(what grade|which (grade|year)) (are|r) (you|u) in\b`, cat, 60, "School grade question")
	r.register("mature_for_age", `\b(so )?mature for your age\b`, cat, 70, "Age-gap flattery")
}

// --- IMAGE REQUESTS ---
func (r *Registry) registerImageRequestPatterns() {
	cat := CategoryImageRequest

	r.register("send_pic", `\b(send|show) (me )?(a |some |ur |your )?(pic(ture)?s?|photos?|selfies?)\b`, cat, 75, "Photo request")
	r.register("private_photo", `\b(private|special|just for me) (pic(ture)?|photo)\b`, cat, 90, "Private photo request")
	r.register("camera_on", `\b(turn (on|ur|your) (cam(era)?|video)|go on cam)\b`, cat, 80, "Camera request")
}

// --- GIFT OFFERING ---
func (r *Registry) registerGiftPatterns() {
	cat := CategoryGiftOffering

	r.register("buy_you", `\b(i'?ll|i will|let me) (buy|get|send) you\b`, cat, 65, "Offer to buy something")
	r.register("game_currency", `\b(free|some) (robux|v-?bucks|vbucks|minecoins|gems|skins?)\b`, cat, 70, "Game currency offer")
	r.register("gift_card", `\b(gift ?card|itunes card|amazon card)\b`, cat, 60, "Gift card offer")
}

// --- PLATFORM MIGRATION ---
func (r *Registry) registerMigrationPatterns() {
	cat := CategoryPlatformMigration

	r.register("move_platform", `\b(let'?s (talk|chat|move)|add me|message me|hit me up) on (snap(chat)?|insta(gram)?|discord|telegram|whatsapp|kik|signal)\b`, cat, 75, "Move to another platform")
	r.register("somewhere_private", `\b(somewhere|something) (more )?private\b`, cat, 70, "Move to a private channel")
}
