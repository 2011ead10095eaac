package mock

// LoginScreen returns a Config modelling the sample Flutter app's login
// screen: a navigation button, username and password fields and a submit
// button, visible both through the Flutter driver and the native tree.
func LoginScreen(platform string) Config {
	if platform == "ios" {
		return Config{
			Platform: "ios",
			Elements: []Element{
				{ID: "nav", Class: "XCUIElementTypeButton", Text: "Login Screen",
					Attrs:      map[string]string{"name": "Login Screen", "label": "Login Screen"},
					FlutterKey: "login_screen_button", FlutterType: "ElevatedButton", FlutterText: "Login Screen", Clickable: true},
				{ID: "user", Class: "XCUIElementTypeTextField",
					Attrs:      map[string]string{"name": "Username", "label": "Username", "placeholderValue": "Username"},
					FlutterKey: "username_field", FlutterType: "TextField", Clickable: true},
				{ID: "pass", Class: "XCUIElementTypeSecureTextField",
					Attrs:      map[string]string{"name": "Password", "label": "Password", "placeholderValue": "Password"},
					FlutterKey: "password_field", FlutterType: "TextField", Clickable: true},
				{ID: "submit", Class: "XCUIElementTypeButton", Text: "Submit",
					Attrs:      map[string]string{"name": "Submit", "label": "Submit"},
					FlutterKey: "login_button", FlutterType: "ElevatedButton", FlutterText: "Submit", Clickable: true},
			},
		}
	}
	return Config{
		Platform: "android",
		Elements: []Element{
			{ID: "nav", Class: "android.widget.Button",
				Attrs:      map[string]string{"content-desc": "Login Screen"},
				FlutterKey: "login_screen_button", FlutterType: "ElevatedButton", FlutterText: "Login Screen", Clickable: true},
			{ID: "user", Class: "android.widget.EditText",
				Attrs:      map[string]string{"hint": "Username"},
				FlutterKey: "username_field", FlutterType: "TextField", Clickable: true},
			{ID: "pass", Class: "android.widget.EditText",
				Attrs:      map[string]string{"hint": "Password"},
				FlutterKey: "password_field", FlutterType: "TextField", Clickable: true},
			{ID: "submit", Class: "android.widget.Button",
				Attrs:      map[string]string{"content-desc": "Submit"},
				FlutterKey: "login_button", FlutterType: "ElevatedButton", FlutterText: "Submit", Clickable: true},
		},
	}
}
