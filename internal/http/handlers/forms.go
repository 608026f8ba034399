package handlers

type LoginForm struct {
	Email      string `form:"email" binding:"required,email,max=64"`
	Password   string `form:"password" binding:"required"`
	RememberMe bool   `form:"remember_me"`
}

type RegistrationForm struct {
	Email     string `form:"email" binding:"required,email,max=64"`
	Username  string `form:"username" binding:"required,max=64,username"`
	Password  string `form:"password" binding:"required,eqfield=Password2"`
	Password2 string `form:"password2" binding:"required"`
}

type ChangePasswordForm struct {
	OldPassword string `form:"old_password" binding:"required"`
	Password    string `form:"password" binding:"required,eqfield=Password2"`
	Password2   string `form:"password2" binding:"required"`
}

type PasswordResetRequestForm struct {
	Email string `form:"email" binding:"required,email,max=64"`
}

type PasswordResetForm struct {
	Password  string `form:"password" binding:"required,eqfield=Password2"`
	Password2 string `form:"password2" binding:"required"`
}

type ChangeEmailForm struct {
	Email    string `form:"email" binding:"required,email,max=64"`
	Password string `form:"password" binding:"required"`
}

type UserEditForm struct {
	Email     string `form:"email" binding:"required,email,max=64"`
	Username  string `form:"username" binding:"required,max=64,username"`
	Confirmed bool   `form:"confirmed"`
	RoleID    int64  `form:"role_id" binding:"required,min=1"`
}
