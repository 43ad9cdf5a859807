package mailer

import "fmt"

const verificationSubject = "Email verification code - passport upload"

func verificationText(code string) string {
	return fmt.Sprintf("Your passport upload verification code is: %s\n\n"+
		"The code is valid for 10 minutes. Do not share it with anyone.\n"+
		"If you did not request this code, please ignore this email.", code)
}

func verificationHTML(code string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin-bottom: 20px;">
				<h2 style="color: #1890ff; margin: 0; text-align: center;">Email Verification Code</h2>
			</div>
			<div style="background-color: white; padding: 30px; border-radius: 8px; border: 1px solid #e8e8e8;">
				<p style="font-size: 16px; line-height: 1.6; color: #333;">Hello,</p>
				<p style="font-size: 16px; line-height: 1.6; color: #333;">
					You are verifying your email for a passport information upload. Your code is:
				</p>
				<div style="text-align: center; margin: 30px 0;">
					<span style="background-color: #1890ff; color: white; padding: 15px 30px; font-size: 24px; font-weight: bold; border-radius: 6px; letter-spacing: 3px;">%s</span>
				</div>
				<p style="font-size: 14px; line-height: 1.6; color: #666;">
					&bull; The code is valid for 10 minutes<br>
					&bull; Do not share the code with anyone<br>
					&bull; If you did not request this code, please ignore this email
				</p>
				<div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e8e8e8; text-align: center;">
					<p style="font-size: 12px; color: #999; margin: 0;">
						This email was sent automatically, please do not reply
					</p>
				</div>
			</div>
		</div>
	`, code)
}
