package bot

// User-facing text. The bot speaks English only.
const (
	MsgSelectCampus  = "Select your campus."
	MsgSelectFaculty = "Select your faculty."

	MsgEnterCourses = "Please enter your course code and group in the following format:\n\n" +
		"Course Code - Group\n\n" +
		"Please provide one line per course code.\n\n" +
		"Example:\nENT530 - D1IM2443A\nIMS605 - D1IM2455A"

	MsgInvalidCampus  = "Invalid campus selected. Please select a valid campus."
	MsgInvalidFaculty = "Invalid faculty selected. Please select a valid faculty."

	MsgInvalidCourses = "Invalid course code formats. Please enter your course code with its group based on provided format.\n\n" +
		"Example:\nENT530 - D1IM2443A\nIMS605 - D1IM2455A"

	MsgTimetableNotFound = "No timetable found for the provided courses. " +
		"Please make sure the course codes and groups are correct, then try /generate again."

	MsgIntro = "🎓 UiTM Timetable 🎓\n" +
		"📚 Credits to: UiTM ICReSS (https://simsweb4.uitm.edu.my/estudent/class_timetable/)\n\n" +
		"To get started, send /generate and follow the steps."
)
