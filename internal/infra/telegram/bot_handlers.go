package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pet_care_bot/internal/app"
	"pet_care_bot/internal/domain/pet"
	idb "pet_care_bot/internal/infra/database"
	"pet_care_bot/internal/schedule"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotHandlers wires the chat interface: pet profile management,
// vaccination records and feeding schedules. Every mutating command goes
// through PetService, which triggers the reminder reconciliation.
func RegisterBotHandlers(
	ctx context.Context,
	b *telebot.Bot,
	petService *app.PetService,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if _, err := petService.RegisterOwner(ctx, senderID); err != nil {
			logCtx.WithError(err).Error("Failed to register owner")
			return c.Send("Произошла ошибка при регистрации. Пожалуйста, попробуйте позже.")
		}
		return c.Send("🐕🦺 Добро пожаловать в PetCareBot! Я помогу не забыть о кормлении и вакцинации ваших питомцев. Используйте /help для списка команд.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		var helpText strings.Builder
		helpText.WriteString("Доступные команды:\n\n")
		helpText.WriteString("`/add_pet <Имя> <кошка|собака> [Порода]`\n - Добавить питомца.\n\n")
		helpText.WriteString("`/pets`\n - Показать ваших питомцев (с кнопкой удаления).\n\n")
		helpText.WriteString("`/set_vaccination <ID питомца> <ДД.ММ.ГГГГ>`\n - Указать дату последней вакцинации.\n\n")
		helpText.WriteString("`/clear_vaccination <ID питомца>`\n - Убрать дату вакцинации.\n\n")
		helpText.WriteString("`/add_feeding <ID питомца> <ЧЧ:ММ> <daily|mon,tue,...>`\n - Добавить напоминание о кормлении.\n\n")
		helpText.WriteString("`/feedings <ID питомца>`\n - Показать напоминания о кормлении.\n\n")
		helpText.WriteString("`/edit_feeding_time <ID напоминания> <ЧЧ:ММ>`\n - Изменить время кормления.\n\n")
		helpText.WriteString("`/edit_feeding_days <ID напоминания> <daily|mon,tue,...>`\n - Изменить дни кормления.\n\n")
		helpText.WriteString("`/delete_feeding <ID напоминания>`\n - Удалить напоминание о кормлении.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/add_pet", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/add_pet",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /add_pet <Name> <Species> [Breed]
		if len(args) < 2 || len(args) > 3 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Неверный формат команды. Используйте: /add_pet <Имя> <кошка|собака> [Порода]")
		}

		name := strings.TrimSpace(args[0])
		if name == "" {
			return c.Send("Ошибка: Имя питомца не может быть пустым.")
		}

		species := pet.Species(strings.ToLower(args[1]))
		if species != pet.SpeciesCat && species != pet.SpeciesDog {
			return c.Send("Ошибка: Вид питомца должен быть «кошка» или «собака».")
		}

		var breed string
		if len(args) == 3 {
			breed = args[2]
		}

		newPet, err := petService.AddPet(ctx, c.Sender().ID, name, species, breed)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to add pet")
			return c.Send("Произошла ошибка при добавлении питомца.")
		}

		handlerLogger.WithField("pet_id", newPet.ID).Info("Pet added successfully")
		return c.Send(fmt.Sprintf("✅ Питомец %s (ID: %d) успешно добавлен.", newPet.Name, newPet.ID))
	})

	b.Handle("/pets", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/pets",
			"sender_id": c.Sender().ID,
		})

		pets, err := petService.ListPets(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, idb.ErrOwnerNotFound) {
				return c.Send("У вас пока нет добавленных питомцев.")
			}
			handlerLogger.WithError(err).Error("Failed to list pets")
			return c.Send("Произошла ошибка при получении списка питомцев.")
		}
		if len(pets) == 0 {
			return c.Send("У вас пока нет добавленных питомцев.")
		}

		for _, p := range pets {
			var text strings.Builder
			text.WriteString(fmt.Sprintf("▪️ %s (ID: %d, %s)", p.Name, p.ID, p.Species))
			if p.Breed.Valid {
				text.WriteString(fmt.Sprintf(", порода: %s", p.Breed.String))
			}
			if p.VaccinationDate.Valid {
				text.WriteString(fmt.Sprintf("\n💉 Дата вакцинации: %s", p.VaccinationDate.String))
			} else {
				text.WriteString("\n💉 Дата вакцинации: не указана")
			}

			replyMarkup := &telebot.ReplyMarkup{}
			btnDelete := replyMarkup.Data("🗑 Удалить", fmt.Sprintf("delete_pet_%d", p.ID))
			replyMarkup.Inline(replyMarkup.Row(btnDelete))

			if err := c.Send(text.String(), &telebot.SendOptions{ReplyMarkup: replyMarkup}); err != nil {
				return err
			}
		}
		return nil
	})

	b.Handle("/set_vaccination", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/set_vaccination",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /set_vaccination <PetID> <DD.MM.YYYY>
		if len(args) != 2 {
			return c.Send("Неверный формат команды. Используйте: /set_vaccination <ID питомца> <ДД.ММ.ГГГГ>")
		}
		petID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID питомца должен быть числом.")
		}

		err = petService.SetVaccinationDate(ctx, c.Sender().ID, petID, args[1])
		if err != nil {
			logWithError := handlerLogger.WithError(err).WithField("pet_id", petID)
			switch {
			case errors.Is(err, idb.ErrPetNotFound), errors.Is(err, idb.ErrOwnerNotFound), errors.Is(err, app.ErrNotPetOwner):
				logWithError.Warn("Pet not found or not owned by sender")
				return c.Send("Питомец не найден.")
			case errors.Is(err, schedule.ErrInvalidSchedule):
				logWithError.Warn("Invalid vaccination date format")
				return c.Send("Ошибка: Неверный формат даты. Используйте ДД.ММ.ГГГГ, например 10.03.2023.")
			case errors.Is(err, app.ErrVaccinationDateInFuture):
				logWithError.Warn("Vaccination date in the future")
				return c.Send("Ошибка: Дата вакцинации не может быть в будущем.")
			default:
				logWithError.Error("Failed to set vaccination date")
				return c.Send("Произошла ошибка при сохранении даты вакцинации.")
			}
		}

		handlerLogger.WithField("pet_id", petID).Info("Vaccination date set")
		return c.Send("✅ Дата вакцинации сохранена. Я напомню о следующей ежегодной вакцинации.")
	})

	b.Handle("/clear_vaccination", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/clear_vaccination",
			"sender_id": c.Sender().ID,
		})

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат команды. Используйте: /clear_vaccination <ID питомца>")
		}
		petID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID питомца должен быть числом.")
		}

		if err := petService.ClearVaccinationDate(ctx, c.Sender().ID, petID); err != nil {
			if errors.Is(err, idb.ErrPetNotFound) || errors.Is(err, idb.ErrOwnerNotFound) || errors.Is(err, app.ErrNotPetOwner) {
				return c.Send("Питомец не найден.")
			}
			handlerLogger.WithError(err).WithField("pet_id", petID).Error("Failed to clear vaccination date")
			return c.Send("Произошла ошибка при удалении даты вакцинации.")
		}
		return c.Send("✅ Дата вакцинации удалена. Напоминание о вакцинации отменено.")
	})

	b.Handle("/add_feeding", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/add_feeding",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /add_feeding <PetID> <HH:MM> <daily|mon,tue,...>
		if len(args) != 3 {
			return c.Send("Неверный формат команды. Используйте: /add_feeding <ID питомца> <ЧЧ:ММ> <daily|mon,tue,...>")
		}
		petID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID питомца должен быть числом.")
		}

		sched, err := petService.AddFeeding(ctx, c.Sender().ID, petID, args[1], args[2])
		if err != nil {
			logWithError := handlerLogger.WithError(err).WithField("pet_id", petID)
			switch {
			case errors.Is(err, idb.ErrPetNotFound), errors.Is(err, idb.ErrOwnerNotFound), errors.Is(err, app.ErrNotPetOwner):
				logWithError.Warn("Pet not found or not owned by sender")
				return c.Send("Питомец не найден.")
			case errors.Is(err, schedule.ErrInvalidSchedule):
				logWithError.Warn("Invalid feeding schedule")
				return c.Send("Ошибка: Неверное время или дни. Время — ЧЧ:ММ, дни — daily или mon,tue,wed,thu,fri,sat,sun.")
			default:
				logWithError.Error("Failed to add feeding schedule")
				return c.Send("Произошла ошибка при добавлении напоминания.")
			}
		}

		handlerLogger.WithField("schedule_id", sched.ID).Info("Feeding schedule added")
		return c.Send(fmt.Sprintf("✅ Напоминание о кормлении (ID: %d) добавлено: %s, %s.", sched.ID, sched.TimeOfDay, sched.Days))
	})

	b.Handle("/feedings", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат команды. Используйте: /feedings <ID питомца>")
		}
		petID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID питомца должен быть числом.")
		}

		schedules, err := petService.ListFeedings(ctx, c.Sender().ID, petID)
		if err != nil {
			if errors.Is(err, idb.ErrPetNotFound) || errors.Is(err, idb.ErrOwnerNotFound) || errors.Is(err, app.ErrNotPetOwner) {
				return c.Send("Питомец не найден.")
			}
			baseLogger.WithError(err).WithField("pet_id", petID).Error("Failed to list feeding schedules")
			return c.Send("Произошла ошибка при получении напоминаний.")
		}
		if len(schedules) == 0 {
			return c.Send("Для этого питомца нет напоминаний о кормлении.")
		}

		var text strings.Builder
		text.WriteString("⏰ Напоминания о кормлении:\n")
		for _, sched := range schedules {
			text.WriteString(fmt.Sprintf("• ID %d: %s, %s\n", sched.ID, sched.TimeOfDay, sched.Days))
		}
		return c.Send(text.String())
	})

	b.Handle("/edit_feeding_time", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Неверный формат команды. Используйте: /edit_feeding_time <ID напоминания> <ЧЧ:ММ>")
		}
		scheduleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID напоминания должен быть числом.")
		}

		if err := petService.UpdateFeedingTime(ctx, c.Sender().ID, scheduleID, args[1]); err != nil {
			return sendFeedingEditError(c, baseLogger, scheduleID, err)
		}
		return c.Send("✅ Время кормления обновлено.")
	})

	b.Handle("/edit_feeding_days", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Неверный формат команды. Используйте: /edit_feeding_days <ID напоминания> <daily|mon,tue,...>")
		}
		scheduleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID напоминания должен быть числом.")
		}

		if err := petService.UpdateFeedingDays(ctx, c.Sender().ID, scheduleID, args[1]); err != nil {
			return sendFeedingEditError(c, baseLogger, scheduleID, err)
		}
		return c.Send("✅ Дни кормления обновлены.")
	})

	b.Handle("/delete_feeding", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат команды. Используйте: /delete_feeding <ID напоминания>")
		}
		scheduleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Ошибка: ID напоминания должен быть числом.")
		}

		if err := petService.DeleteFeeding(ctx, c.Sender().ID, scheduleID); err != nil {
			return sendFeedingEditError(c, baseLogger, scheduleID, err)
		}
		return c.Send("✅ Напоминание о кормлении удалено.")
	})

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimSpace(c.Callback().Data)

		if strings.HasPrefix(data, "delete_pet_") {
			petIDStr := strings.TrimPrefix(data, "delete_pet_")
			petID, err := strconv.ParseInt(petIDStr, 10, 64)
			if err != nil {
				c.Bot().OnError(fmt.Errorf("invalid pet ID %q in delete callback: %w", petIDStr, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки запроса."})
			}

			if err := petService.DeletePet(ctx, c.Sender().ID, petID); err != nil {
				if errors.Is(err, idb.ErrPetNotFound) || errors.Is(err, app.ErrNotPetOwner) {
					return c.Respond(&telebot.CallbackResponse{Text: "Питомец не найден."})
				}
				c.Bot().OnError(fmt.Errorf("error deleting pet %d: %w", petID, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка при удалении."})
			}

			if err := c.Respond(&telebot.CallbackResponse{Text: "✅ Питомец удален."}); err != nil {
				return err
			}
			return c.Send("Питомец и все его напоминания удалены.")
		}

		return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
	})
}

func sendFeedingEditError(c telebot.Context, baseLogger *logrus.Entry, scheduleID int64, err error) error {
	switch {
	case errors.Is(err, idb.ErrScheduleNotFound), errors.Is(err, idb.ErrPetNotFound),
		errors.Is(err, idb.ErrOwnerNotFound), errors.Is(err, app.ErrNotPetOwner):
		return c.Send("Напоминание не найдено.")
	case errors.Is(err, schedule.ErrInvalidSchedule):
		return c.Send("Ошибка: Неверное время или дни. Время — ЧЧ:ММ, дни — daily или mon,tue,wed,thu,fri,sat,sun.")
	default:
		baseLogger.WithError(err).WithField("schedule_id", scheduleID).Error("Feeding schedule mutation failed")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
}
