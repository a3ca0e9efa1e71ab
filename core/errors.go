package core

//region InvalidArgumentsError

type InvalidArgumentsError struct {
	Msg string
}

func (e *InvalidArgumentsError) Error() string {
	return e.Msg
}

func (e *InvalidArgumentsError) Is(target error) bool {
	_, ok := target.(*InvalidArgumentsError)
	return ok
}

//endregion

//region NotFoundError

type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

//endregion

//region DuplicateNicknameError

type DuplicateNicknameError struct {
	Msg string
}

func (e *DuplicateNicknameError) Error() string {
	return e.Msg
}

func (e *DuplicateNicknameError) Is(target error) bool {
	_, ok := target.(*DuplicateNicknameError)
	return ok
}

//endregion

//region CooldownError

type CooldownError struct {
	Msg string
}

func (e *CooldownError) Error() string {
	return e.Msg
}

func (e *CooldownError) Is(target error) bool {
	_, ok := target.(*CooldownError)
	return ok
}

//endregion

//region UnauthorizedError

type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string {
	return e.Msg
}

func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)
	return ok
}

//endregion
